package pipeline

import (
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/google/renameio/v2"

	"iptv-curator/checker"
	"iptv-curator/logger"
	"iptv-curator/playlist"
)

const reportFile = "collected_sources.json"

type reportSource struct {
	URL       string `json:"url"`
	Valid     bool   `json:"valid"`
	LatencyMS int64  `json:"latency_ms"`
	Reason    string `json:"reason,omitempty"`
}

type reportChannel struct {
	Info    map[string]string `json:"info"`
	Sources []reportSource    `json:"sources"`
}

// writeProbeReport dumps the full per-URL probe outcome next to the
// playlists, keyed by channel. The report is diagnostic only, so failures
// are logged and swallowed.
func writeProbeReport(dir string, records []*playlist.Record, probes map[string]checker.Result) {
	report := make(map[string]reportChannel, len(records))
	for _, rec := range records {
		sources := make([]reportSource, 0, len(rec.URLs))
		for _, u := range rec.URLs {
			res, ok := probes[u]
			if !ok {
				continue
			}
			src := reportSource{URL: u, Valid: res.Valid, LatencyMS: res.Latency.Milliseconds(), Reason: res.Reason}
			if !res.Valid {
				src.LatencyMS = -1
			}
			sources = append(sources, src)
		}
		report[rec.Key] = reportChannel{Info: rec.Attrs, Sources: sources}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Default.Errorf("Encoding probe report: %v", err)
		return
	}

	path := filepath.Join(dir, reportFile)
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		logger.Default.Errorf("Writing probe report %s: %v", path, err)
	}
}
