package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedChannel(key, title, group string, urls ...string) Ranked {
	attrs := map[string]string{TitleAttr: title}
	if group != "" {
		attrs["group-title"] = group
	}
	return Ranked{Key: key, Attrs: attrs, Endpoints: urls}
}

func TestRenderM3U(t *testing.T) {
	channels := []Ranked{
		{
			Key: "cctv1",
			Attrs: map[string]string{
				TitleAttr:     "CCTV-1",
				"tvg-id":      "cctv1",
				"tvg-logo":    "http://example.com/cctv1.png",
				"group-title": "央视",
				"x-custom":    "extra",
			},
			Endpoints: []string{"http://a/1", "http://b/1"},
		},
		rankedChannel("hunan", "湖南卫视", "卫视", "http://a/hunan"),
	}

	want := `#EXTM3U
#EXTINF:-1 tvg-id="cctv1" tvg-logo="http://example.com/cctv1.png" group-title="央视" x-custom="extra",CCTV-1
http://a/1
#EXTBURL:http://b/1
#EXTINF:-1 group-title="卫视",湖南卫视
http://a/hunan
`
	assert.Equal(t, want, string(RenderM3U(channels)))
}

func TestRenderM3UDeterministic(t *testing.T) {
	channels := []Ranked{
		{
			Key: "ch1",
			Attrs: map[string]string{
				TitleAttr: "Channel One",
				"z-attr":  "z",
				"a-attr":  "a",
				"m-attr":  "m",
			},
			Endpoints: []string{"http://a/1"},
		},
	}

	first := RenderM3U(channels)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, RenderM3U(channels))
	}
	// extra attributes come out sorted
	assert.Contains(t, string(first), `a-attr="a" m-attr="m" z-attr="z"`)
}

func TestRenderM3USkipsEndpointlessChannels(t *testing.T) {
	channels := []Ranked{
		rankedChannel("empty", "Empty", ""),
		rankedChannel("kept", "Kept", "", "http://a/kept"),
	}

	out := string(RenderM3U(channels))
	assert.NotContains(t, out, "Empty")
	assert.Contains(t, out, "Kept")
}

func TestRenderM3URoundTrip(t *testing.T) {
	channels := []Ranked{
		{
			Key: "cctv1",
			Attrs: map[string]string{
				TitleAttr: "CCTV-1",
				"tvg-id":  "cctv1",
			},
			Endpoints: []string{"http://a/1", "http://b/1"},
		},
	}

	records, warnings := Parse(string(RenderM3U(channels)))
	assert.Empty(t, warnings)
	require.Len(t, records, 1)
	assert.Equal(t, "cctv1", records[0].Key)
	assert.Equal(t, "CCTV-1", records[0].Title())
	assert.Equal(t, []string{"http://a/1", "http://b/1"}, records[0].URLs)
}

func TestRenderTXT(t *testing.T) {
	channels := []Ranked{
		rankedChannel("cctv1", "CCTV-1", "央视", "http://a/1", "http://b/1"),
		rankedChannel("cctv2", "CCTV-2", "央视", "http://a/2"),
		rankedChannel("hunan", "湖南卫视", "卫视", "http://a/hunan"),
	}

	want := `央视,#genre#
CCTV-1,http://a/1,http://b/1
CCTV-2,http://a/2
卫视,#genre#
湖南卫视,http://a/hunan
`
	assert.Equal(t, want, string(RenderTXT(channels)))
}

func TestRenderTXTNoCategoryNoBreak(t *testing.T) {
	channels := []Ranked{
		rankedChannel("ch1", "Channel One", "", "http://a/1"),
	}
	assert.Equal(t, "Channel One,http://a/1\n", string(RenderTXT(channels)))
}
