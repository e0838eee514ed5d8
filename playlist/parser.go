package playlist

import (
	"fmt"
	"regexp"
	"strings"

	"iptv-curator/logger"
)

var (
	// attributeRegex matches M3U attributes in the format key="value"
	attributeRegex = regexp.MustCompile(`([a-zA-Z0-9_-]+)="([^"]*)"`)
	// schemeRegex matches the start of any stream URL (http, rtmp, rtsp, ...)
	schemeRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
)

// Parse turns raw playlist text into channel records. It never fails:
// malformed input yields an empty or partial result plus warnings. Text
// without the #EXTM3U header is accepted only when it is recognized as a
// plain-text channel list, which is normalized into the M3U dialect first.
func Parse(text string) ([]*Record, []string) {
	var warnings []string

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	if !hasHeader(lines) {
		if !looksLikePlainList(lines) {
			return nil, append(warnings, "not a valid M3U or plain-text channel list")
		}
		lines = normalizePlain(lines)
	}

	var records []*Record
	var current *Record

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "" || strings.HasPrefix(line, "#EXTM3U"):
			// skip
		case strings.HasPrefix(line, "#EXTINF"):
			current = parseExtinf(line)
			if current == nil {
				logger.Default.Debugf("Dropping EXTINF without any channel identifier: %s", line)
				continue
			}
			records = append(records, current)
		case strings.HasPrefix(line, ExtBURLPrefix):
			// stacked alternate endpoint for the current block
			if current != nil {
				current.AddURL(strings.TrimPrefix(line, ExtBURLPrefix))
			}
		case strings.HasPrefix(line, "#"):
			// other directives and comments are ignored
		default:
			if current == nil {
				warnings = append(warnings, fmt.Sprintf("URL line outside a channel block: %s", line))
				continue
			}
			current.AddURL(line)
		}
	}

	// A metadata line with no following URL line is dropped silently.
	kept := records[:0]
	for _, rec := range records {
		if len(rec.URLs) > 0 {
			kept = append(kept, rec)
		}
	}

	return kept, warnings
}

func hasHeader(lines []string) bool {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		return strings.HasPrefix(trimmed, "#EXTM3U")
	}
	return false
}

// parseExtinf extracts key="value" attributes plus the trailing free-text
// title. The channel key is derived with priority tvg-id, then tvg-name,
// then title; a line lacking all three yields nil.
func parseExtinf(line string) *Record {
	attrs := make(map[string]string)

	lineWithoutPairs := line
	for _, match := range attributeRegex.FindAllStringSubmatch(line, -1) {
		key := strings.ToLower(strings.TrimSpace(match[1]))
		attrs[key] = strings.TrimSpace(match[2])
		lineWithoutPairs = strings.Replace(lineWithoutPairs, match[0], "", 1)
	}

	if commaSplit := strings.SplitN(lineWithoutPairs, ",", 2); len(commaSplit) > 1 {
		if title := strings.TrimSpace(commaSplit[1]); title != "" {
			attrs[TitleAttr] = title
		}
	}

	key := attrs["tvg-id"]
	if key == "" {
		key = attrs["tvg-name"]
	}
	if key == "" {
		key = attrs[TitleAttr]
	}
	if key == "" {
		return nil
	}

	rec := NewRecord(key)
	for k, v := range attrs {
		rec.SetIfMissing(k, v)
	}
	return rec
}

// looksLikePlainList reports whether the text resembles a plain-text
// channel list: at least one of the first 20 non-empty lines carries a
// stream URL, bare or in "name,url" form.
func looksLikePlainList(lines []string) bool {
	checked := 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if checked++; checked > 20 {
			break
		}
		if schemeRegex.MatchString(line) {
			return true
		}
		if _, url, ok := strings.Cut(line, ","); ok && schemeRegex.MatchString(strings.TrimSpace(url)) {
			return true
		}
	}
	return false
}

// normalizePlain rewrites a plain-text channel list into the M3U dialect so
// the same extraction logic runs for both. "Label,#genre#" lines become the
// group-title for the lines that follow.
func normalizePlain(lines []string) []string {
	out := []string{"#EXTM3U"}
	group := ""

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if schemeRegex.MatchString(line) {
			out = append(out, extinfFor("Unknown Channel", group), line)
			continue
		}

		name, rest, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		rest = strings.TrimSpace(rest)

		if rest == "#genre#" {
			group = name
			continue
		}

		// "name,url[,url2]" rows may carry stacked alternates
		urls := strings.Split(rest, ",")
		if name == "" || !schemeRegex.MatchString(strings.TrimSpace(urls[0])) {
			continue
		}
		out = append(out, extinfFor(name, group))
		for _, u := range urls {
			if u = strings.TrimSpace(u); schemeRegex.MatchString(u) {
				out = append(out, u)
			}
		}
	}

	return out
}

func extinfFor(name, group string) string {
	if group == "" {
		return fmt.Sprintf("#EXTINF:-1,%s", name)
	}
	return fmt.Sprintf("#EXTINF:-1 group-title=%q,%s", group, name)
}
