package epg

import (
	"strings"
	"unicode"
	"unicode/utf8"

	unorm "golang.org/x/text/unicode/norm"

	"iptv-curator/config"
	"iptv-curator/logger"
	"iptv-curator/playlist"
)

// Normalize reduces a channel name to its matching key: NFC form,
// lower-cased, stripped of everything but letters, digits and CJK
// ideographs, then the configured synonym substitutions in order. The
// same function is used for guide names and channel titles, so matching
// is deterministic.
func Normalize(name string, synonyms []config.Synonym) string {
	s := unorm.NFC.String(name)
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
			continue
		}
		if unicode.Is(unicode.Han, r) || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	s = b.String()

	for _, syn := range synonyms {
		s = strings.ReplaceAll(s, syn.From, syn.To)
	}
	return s
}

// Enrich fills tvg-id and missing tvg-logo attributes on every record the
// guide can match: direct channel-key match first, then the normalized
// title, then a bounded substring match. Returns the number of matched
// records.
func (g *Guide) Enrich(records []*playlist.Record) int {
	if len(g.byID) == 0 {
		return 0
	}

	matched := 0
	for _, rec := range records {
		entry, ok := g.match(rec)
		if !ok {
			continue
		}
		rec.Attrs["tvg-id"] = entry.ID
		rec.SetIfMissing("tvg-logo", entry.Icon)
		matched++
	}

	logger.Default.Logf("EPG matched %d/%d channels", matched, len(records))
	return matched
}

func (g *Guide) match(rec *playlist.Record) (Entry, bool) {
	if entry, ok := g.byID[rec.Key]; ok {
		return entry, true
	}

	title := Normalize(rec.Title(), g.synonyms)
	if title == "" {
		return Entry{}, false
	}
	if entry, ok := g.byName[title]; ok {
		return entry, true
	}

	// Substring fallback: a guide name contained in the title, or a
	// sufficiently long title contained in a guide name.
	for _, name := range g.names {
		if strings.Contains(title, name) ||
			(utf8.RuneCountInString(title) > 3 && strings.Contains(name, title)) {
			return g.byName[name], true
		}
	}
	return Entry{}, false
}
