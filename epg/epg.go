// Package epg enriches channel records with ids and icons from XMLTV
// program guides. Enrichment never gates validity; it only fills metadata.
package epg

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"iptv-curator/config"
	"iptv-curator/logger"
	"iptv-curator/utils"
)

// maxXMLSize bounds a single XMLTV document; guides above this are cut off.
const maxXMLSize = 50 * 1024 * 1024

type Entry struct {
	ID   string
	Name string
	Icon string
}

// Guide is the channel metadata collected from every configured XMLTV
// source, indexed for deterministic matching.
type Guide struct {
	byID     map[string]Entry
	byName   map[string]Entry
	names    []string
	synonyms []config.Synonym
}

type xmltvDoc struct {
	Channels []xmltvChannel `xml:"channel"`
}

type xmltvChannel struct {
	ID          string      `xml:"id,attr"`
	DisplayName []string    `xml:"display-name"`
	Icons       []xmltvIcon `xml:"icon"`
}

type xmltvIcon struct {
	Src string `xml:"src,attr"`
}

// Fetch downloads and decodes every configured guide. Per-guide failures
// are logged and skipped; an empty guide is a valid (no-op) result.
func Fetch(ctx context.Context, urls []string, synonyms []config.Synonym) *Guide {
	g := &Guide{
		byID:     make(map[string]Entry),
		byName:   make(map[string]Entry),
		synonyms: synonyms,
	}

	for _, url := range urls {
		doc, err := fetchGuide(ctx, url)
		if err != nil {
			logger.Default.Errorf("Failed to load EPG %s: %v", url, err)
			continue
		}
		added := g.addChannels(doc)
		logger.Default.Logf("EPG %s contributed %d channels", url, added)
	}

	g.reindex()
	logger.Default.Logf("EPG loaded: %d channel entries", len(g.byID))
	return g
}

func fetchGuide(ctx context.Context, url string) (*xmltvDoc, error) {
	resp, err := utils.CustomHttpRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var reader io.Reader = io.LimitReader(resp.Body, maxXMLSize)
	if strings.HasSuffix(url, ".gz") {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("gunzip: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	var doc xmltvDoc
	dec := xml.NewDecoder(reader)
	dec.Strict = true
	// Disable entity expansion; guides come from untrusted hosts.
	dec.Entity = make(map[string]string)

	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode xmltv: %w", err)
	}
	return &doc, nil
}

func (g *Guide) addChannels(doc *xmltvDoc) int {
	added := 0
	for _, ch := range doc.Channels {
		if ch.ID == "" || len(ch.DisplayName) == 0 {
			continue
		}

		icon := ""
		if len(ch.Icons) > 0 {
			icon = ch.Icons[0].Src
		}

		existing, ok := g.byID[ch.ID]
		if !ok {
			g.byID[ch.ID] = Entry{ID: ch.ID, Name: ch.DisplayName[0], Icon: icon}
			added++
		} else if existing.Icon == "" && icon != "" {
			existing.Icon = icon
			g.byID[ch.ID] = existing
		}
	}
	return added
}

// reindex builds the normalized-name index. Names are sorted so fuzzy
// scans are deterministic across runs.
func (g *Guide) reindex() {
	g.byName = make(map[string]Entry, len(g.byID))
	for _, entry := range g.byID {
		key := Normalize(entry.Name, g.synonyms)
		if key == "" {
			continue
		}
		// Keep the lexicographically smallest id per name for stability.
		if existing, ok := g.byName[key]; !ok || entry.ID < existing.ID {
			g.byName[key] = entry
		}
	}

	g.names = g.names[:0]
	for name := range g.byName {
		g.names = append(g.names, name)
	}
	sort.Strings(g.names)
}

func (g *Guide) Len() int {
	return len(g.byID)
}
