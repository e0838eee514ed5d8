package selector

import (
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gosimple/slug"

	"iptv-curator/checker"
	"iptv-curator/config"
	"iptv-curator/logger"
	"iptv-curator/playlist"
)

type candidate struct {
	url       string
	effective time.Duration
}

// Select reduces every channel record to its best verified endpoints:
// candidates must have probed valid and pass the exclusion rules, are
// ranked by effective latency and capped at max_endpoints. Channels whose
// normalized display titles collide keep only the strictly faster one.
// Channels with no surviving candidate are dropped entirely.
func Select(records []*playlist.Record, probes map[string]checker.Result, cfg *config.Config) map[string]playlist.Ranked {
	type winner struct {
		ranked  playlist.Ranked
		fastest time.Duration
	}
	byTitle := make(map[string]winner)
	dropped := 0

	for _, rec := range records {
		title := cfg.NormalizeName(rec.Title())
		if title == "" {
			dropped++
			continue
		}

		if excludedChannel(rec) {
			logger.Default.Debugf("Excluding channel %s by rule", rec.Key)
			dropped++
			continue
		}

		cands := make([]candidate, 0, len(rec.URLs))
		for _, u := range rec.URLs {
			res, ok := probes[u]
			if !ok || !res.Valid {
				continue
			}
			if excludedURL(u, cfg) {
				continue
			}
			cands = append(cands, candidate{url: u, effective: effectiveLatency(u, res.Latency, cfg)})
		}

		if len(cands) == 0 {
			dropped++
			continue
		}

		sort.SliceStable(cands, func(i, j int) bool {
			if cands[i].effective != cands[j].effective {
				return cands[i].effective < cands[j].effective
			}
			return cands[i].url < cands[j].url
		})
		if len(cands) > cfg.MaxEndpoints {
			cands = cands[:cfg.MaxEndpoints]
		}

		attrs := make(map[string]string, len(rec.Attrs))
		for k, v := range rec.Attrs {
			attrs[k] = v
		}
		attrs[playlist.TitleAttr] = title

		endpoints := make([]string, len(cands))
		for i, c := range cands {
			endpoints[i] = c.url
		}
		ranked := playlist.Ranked{Key: rec.Key, Attrs: attrs, Endpoints: endpoints}

		// Same display title under a different key: replace only when
		// strictly faster, which keeps the merge order-independent.
		titleKey := slug.Make(title)
		if best, ok := byTitle[titleKey]; ok && cands[0].effective >= best.fastest {
			dropped++
			continue
		} else if ok {
			dropped++
		}
		byTitle[titleKey] = winner{ranked: ranked, fastest: cands[0].effective}
	}

	out := make(map[string]playlist.Ranked, len(byTitle))
	for _, w := range byTitle {
		out[w.ranked.Key] = w.ranked
	}

	logger.Default.Logf("Selection kept %d channels, dropped %d", len(out), dropped)
	return out
}

// excludedChannel applies the channel-level rules: short all-numeric
// identifiers are known-unreliable, and a garbled category label marks a
// mis-decoded source.
func excludedChannel(rec *playlist.Record) bool {
	if id := rec.Attrs["tvg-id"]; id != "" && len(id) < 5 && allDigits(id) {
		return true
	}
	return looksGarbled(rec.Attrs["group-title"])
}

func excludedURL(u string, cfg *config.Config) bool {
	for _, blocked := range cfg.ExcludedSources {
		if blocked != "" && strings.Contains(u, blocked) {
			return true
		}
	}
	return false
}

// effectiveLatency applies the configured accelerator discount to URLs
// served from a known accelerator host, preferring likely-more-durable
// sources among near-tied latencies.
func effectiveLatency(u string, latency time.Duration, cfg *config.Config) time.Duration {
	if cfg.AcceleratorDiscount >= 1 || len(cfg.AcceleratorHosts) == 0 {
		return latency
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return latency
	}
	host := parsed.Hostname()
	for _, h := range cfg.AcceleratorHosts {
		if h != "" && strings.Contains(host, h) {
			return time.Duration(float64(latency) * cfg.AcceleratorDiscount)
		}
	}
	return latency
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// looksGarbled reports whether a label is mis-decoded text: either invalid
// UTF-8, or Latin-1-range characters whose bytes re-decode as multi-byte
// UTF-8 sequences, which is the signature of double-encoded text.
func looksGarbled(s string) bool {
	if s == "" {
		return false
	}
	if !utf8.ValidString(s) {
		return true
	}

	raw := make([]byte, 0, len(s))
	hasHigh := false
	for _, r := range s {
		if r > 0xFF {
			// genuine non-Latin text
			return false
		}
		if r >= 0x80 {
			hasHigh = true
		}
		raw = append(raw, byte(r))
	}
	if !hasHigh || !utf8.Valid(raw) {
		return false
	}

	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if size > 1 && r != utf8.RuneError {
			return true
		}
		i += size
	}
	return false
}
