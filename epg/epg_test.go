package epg

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iptv-curator/config"
	"iptv-curator/playlist"
)

const testXMLTV = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="cctv1.cn">
    <display-name>CCTV-1</display-name>
    <icon src="http://example.com/cctv1.png"/>
  </channel>
  <channel id="cctv5.cn">
    <display-name>CCTV-5</display-name>
  </channel>
  <channel id="hunan.cn">
    <display-name>湖南卫视</display-name>
    <icon src="http://example.com/hunan.png"/>
  </channel>
</tv>`

func serveGuide(t *testing.T, body string, gzipped bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gzipped {
			gz := gzip.NewWriter(w)
			defer gz.Close()
			_, err := gz.Write([]byte(body))
			require.NoError(t, err)
			return
		}
		_, err := w.Write([]byte(body))
		require.NoError(t, err)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchBuildsGuide(t *testing.T) {
	srv := serveGuide(t, testXMLTV, false)

	g := Fetch(context.Background(), []string{srv.URL + "/guide.xml"}, nil)
	assert.Equal(t, 3, g.Len())
}

func TestFetchGzippedGuide(t *testing.T) {
	srv := serveGuide(t, testXMLTV, true)

	g := Fetch(context.Background(), []string{srv.URL + "/guide.xml.gz"}, nil)
	assert.Equal(t, 3, g.Len())
}

func TestFetchSkipsBrokenGuides(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	t.Cleanup(broken.Close)
	good := serveGuide(t, testXMLTV, false)

	g := Fetch(context.Background(), []string{broken.URL, good.URL}, nil)
	assert.Equal(t, 3, g.Len())
}

func TestEnrichMatchesRecords(t *testing.T) {
	srv := serveGuide(t, testXMLTV, false)
	g := Fetch(context.Background(), []string{srv.URL}, nil)

	byID := playlist.NewRecord("cctv1.cn")
	byID.SetTitle("Some Title")
	byID.AddURL("http://a/1")

	byName := playlist.NewRecord("hunan")
	byName.SetTitle("湖南卫视")
	byName.AddURL("http://a/hunan")
	byName.Attrs["tvg-logo"] = "http://already.example.com/hunan.png"

	unmatched := playlist.NewRecord("mystery")
	unmatched.SetTitle("Mystery Channel")
	unmatched.AddURL("http://a/mystery")

	records := []*playlist.Record{byID, byName, unmatched}
	matched := g.Enrich(records)
	assert.Equal(t, 2, matched)

	assert.Equal(t, "cctv1.cn", byID.Attrs["tvg-id"])
	assert.Equal(t, "http://example.com/cctv1.png", byID.Attrs["tvg-logo"])

	assert.Equal(t, "hunan.cn", byName.Attrs["tvg-id"])
	// an existing logo is never overwritten
	assert.Equal(t, "http://already.example.com/hunan.png", byName.Attrs["tvg-logo"])

	assert.Empty(t, unmatched.Attrs["tvg-id"])
}

func TestEnrichSubstringFallback(t *testing.T) {
	srv := serveGuide(t, testXMLTV, false)
	g := Fetch(context.Background(), []string{srv.URL}, nil)

	rec := playlist.NewRecord("hd")
	rec.SetTitle("CCTV-1 高清")
	rec.AddURL("http://a/1")

	matched := g.Enrich([]*playlist.Record{rec})
	assert.Equal(t, 1, matched)
	assert.Equal(t, "cctv1.cn", rec.Attrs["tvg-id"])
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		synonyms []config.Synonym
		want     string
	}{
		{name: "lowercase and strip punctuation", in: "CCTV-1 (HD)", want: "cctv1hd"},
		{name: "cjk preserved", in: "湖南卫视 HD", want: "湖南卫视hd"},
		{name: "whitespace trimmed", in: "  BBC News  ", want: "bbcnews"},
		{
			name:     "synonyms applied in order",
			in:       "中央电视台一套",
			synonyms: []config.Synonym{{From: "中央电视台", To: "cctv"}, {From: "一套", To: "1"}},
			want:     "cctv1",
		},
		{name: "empty input", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in, tt.synonyms))
		})
	}
}
