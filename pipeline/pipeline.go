// Package pipeline wires the curation stages together: collect sources,
// parse and merge, verify endpoints, enrich from EPG, select and order,
// then render both output formats. Per-item failures surface only in the
// run summary; the sole fatal paths are configuration and sink errors.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"iptv-curator/checker"
	"iptv-curator/collector"
	"iptv-curator/config"
	"iptv-curator/epg"
	"iptv-curator/logger"
	"iptv-curator/playlist"
	"iptv-curator/selector"
)

type Options struct {
	SkipCheck   bool
	SkipEPG     bool
	MaxChannels int
	OutputDir   string

	// Prober overrides the auto-detected prober; used by tests.
	Prober checker.Prober
}

// Summary is the structured outcome of one run, accumulated across stages
// and emitted once at the end.
type Summary struct {
	RunID         string
	Sources       int
	SourcesFailed int
	Channels      int
	URLs          int
	ValidURLs     int
	ChannelsKept  int
	ParseWarnings int
	Elapsed       time.Duration
}

// Run executes the whole pipeline once.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: uuid.New().String()}
	logger.Default.Logf("Starting curation run %s (%d sources)", sum.RunID, len(cfg.Sources))

	sources, failed := collector.Fetch(ctx, cfg.Sources, cfg.MaxWorkers)
	sum.Sources = len(sources)
	sum.SourcesFailed = failed

	records, warnings, err := mergeSources(sources)
	if err != nil {
		return nil, err
	}
	sum.ParseWarnings = warnings

	if opts.MaxChannels > 0 && len(records) > opts.MaxChannels {
		logger.Default.Logf("Capping run at %d channels", opts.MaxChannels)
		records = records[:opts.MaxChannels]
	}
	sum.Channels = len(records)

	urls := distinctURLs(records)
	sum.URLs = len(urls)
	logger.Default.Logf("Merged %d channels with %d distinct stream URLs", len(records), len(urls))

	var probes map[string]checker.Result
	if opts.SkipCheck {
		logger.Default.Log("Stream check skipped; treating every URL as valid")
		probes = assumeAllValid(urls)
	} else {
		prober := opts.Prober
		if prober == nil {
			prober = checker.NewProber()
		}
		probes = checker.Verify(ctx, urls, prober, checker.Options{
			Concurrency: cfg.MaxWorkers,
			Timeout:     cfg.ProbeTimeout(),
			MaxAttempts: cfg.CheckAttempts,
		})
	}
	for _, res := range probes {
		if res.Valid {
			sum.ValidURLs++
		}
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	writeProbeReport(outputDir, records, probes)

	if !opts.SkipEPG && len(cfg.EPGURLs) > 0 {
		guide := epg.Fetch(ctx, cfg.EPGURLs, cfg.Synonyms)
		guide.Enrich(records)
	}

	ranked := selector.Select(records, probes, cfg)
	ordered := selector.Organize(ranked, cfg)
	sum.ChannelsKept = len(ordered)

	m3uPath := filepath.Join(outputDir, cfg.OutputFile)
	if err := renameio.WriteFile(m3uPath, playlist.RenderM3U(ordered), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", m3uPath, err)
	}

	txtPath := strings.TrimSuffix(m3uPath, filepath.Ext(m3uPath)) + ".txt"
	if err := renameio.WriteFile(txtPath, playlist.RenderTXT(ordered), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", txtPath, err)
	}

	sum.Elapsed = time.Since(start)
	logger.Default.Logf("Run %s finished: %d/%d sources, %d channels in, %d kept, %d/%d URLs valid, took %s",
		sum.RunID, sum.Sources, sum.Sources+sum.SourcesFailed, sum.Channels,
		sum.ChannelsKept, sum.ValidURLs, sum.URLs, sum.Elapsed.Round(time.Millisecond))

	return sum, nil
}

// mergeSources parses every source in parallel and merges the results into
// one index behind its single-writer lock. The outcome is identical to a
// sequential merge because URL sets union commutatively.
func mergeSources(sources []collector.Source) ([]*playlist.Record, int, error) {
	index, err := playlist.NewIndex()
	if err != nil {
		return nil, 0, err
	}

	var warnings atomic.Int64
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(s collector.Source) {
			defer wg.Done()

			records, warns := playlist.Parse(s.Text)
			for _, w := range warns {
				logger.Default.Warnf("%s: %s", s.URL, w)
			}
			warnings.Add(int64(len(warns)))

			logger.Default.Logf("Parsed %d channels from %s", len(records), s.URL)
			if err := index.Add(records...); err != nil {
				logger.Default.Errorf("Merging %s: %v", s.URL, err)
			}
		}(src)
	}
	wg.Wait()

	return index.Snapshot(), int(warnings.Load()), nil
}

func distinctURLs(records []*playlist.Record) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, rec := range records {
		for _, u := range rec.URLs {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls
}

func assumeAllValid(urls []string) map[string]checker.Result {
	probes := make(map[string]checker.Result, len(urls))
	for _, u := range urls {
		probes[u] = checker.Result{URL: u, Valid: true}
	}
	return probes
}
