package collector

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"golang.org/x/crypto/sha3"

	"iptv-curator/config"
	"iptv-curator/logger"
	"iptv-curator/utils"
)

// Source is one successfully fetched playlist text.
type Source struct {
	URL  string
	Text string
}

var schemeRegex = regexp.MustCompile(`(?m)^[a-zA-Z][a-zA-Z0-9+.-]*://|,\s*[a-zA-Z][a-zA-Z0-9+.-]*://`)

// Fetch downloads every configured source concurrently. Failures are
// per-source and never fatal: the returned slice holds the sources that
// fetched and validated, in configuration order, plus the failure count.
func Fetch(ctx context.Context, urls []string, concurrency int) ([]Source, int) {
	if concurrency < 1 {
		concurrency = 8
	}

	results := make([]*Source, len(urls))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			text, err := fetchOne(ctx, u)
			if err != nil {
				logger.Default.Errorf("Failed to fetch source %s: %v", u, err)
				return
			}
			if !looksLikePlaylist(text) {
				logger.Default.Warnf("Source %s is not a recognizable playlist, skipping", u)
				return
			}

			saveSnapshot(u, text)
			results[idx] = &Source{URL: u, Text: text}
		}(i, url)
	}
	wg.Wait()

	sources := make([]Source, 0, len(urls))
	for _, res := range results {
		if res != nil {
			sources = append(sources, *res)
		}
	}

	failed := len(urls) - len(sources)
	logger.Default.Logf("Collected %d/%d sources", len(sources), len(urls))
	return sources, failed
}

func fetchOne(ctx context.Context, url string) (string, error) {
	if path, ok := strings.CutPrefix(url, "file://"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	resp, err := utils.CustomHttpRequest(ctx, http.MethodGet, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

// looksLikePlaylist accepts M3U text and plain-text channel lists; the
// parser handles dialect normalization later.
func looksLikePlaylist(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "#EXTM3U") {
		return true
	}

	checked := 0
	for _, line := range strings.Split(trimmed, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		if checked++; checked > 20 {
			break
		}
		if schemeRegex.MatchString(line) {
			return true
		}
	}
	return false
}

// saveSnapshot writes a copy of the fetched source under the temp dir,
// named by the URL hash so re-runs overwrite their own snapshot.
func saveSnapshot(url, text string) {
	dir := config.GetConfig().SourcesDirPath()
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Default.Debugf("Cannot create snapshot dir %s: %v", dir, err)
		return
	}

	sum := sha3.Sum224([]byte(url))
	path := filepath.Join(dir, hex.EncodeToString(sum[:])[:16]+".m3u")
	if err := renameio.WriteFile(path, []byte(text), 0644); err != nil {
		logger.Default.Debugf("Cannot write snapshot %s: %v", path, err)
	}
}
