package playlist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// ExtBURLPrefix marks a fallback endpoint line in the extended M3U format.
const ExtBURLPrefix = "#EXTBURL:"

// canonicalAttrs are rendered first, in this order; any remaining
// attributes follow sorted by key, so rendering the same channel sequence
// always produces identical bytes.
var canonicalAttrs = []string{"tvg-id", "tvg-chno", "tvg-name", "tvg-logo", "group-title"}

// RenderM3U renders the ordered channel list in the extended M3U format:
// one EXTINF metadata line per channel, the primary URL, then one EXTBURL
// line per fallback endpoint.
func RenderM3U(channels []Ranked) []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("#EXTM3U\n")
	for _, ch := range channels {
		if len(ch.Endpoints) == 0 {
			continue
		}
		buf.WriteString(extinfLine(ch))
		buf.WriteString("\n")
		buf.WriteString(ch.Endpoints[0])
		buf.WriteString("\n")
		for _, alt := range ch.Endpoints[1:] {
			buf.WriteString(ExtBURLPrefix)
			buf.WriteString(alt)
			buf.WriteString("\n")
		}
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// RenderTXT renders the plain-text format: a "Category,#genre#" break line
// whenever the category changes, then one "Title,URL[,URL2]" row per
// channel.
func RenderTXT(channels []Ranked) []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	lastGroup := ""
	for _, ch := range channels {
		if len(ch.Endpoints) == 0 {
			continue
		}
		if group := ch.Category(); group != "" && group != lastGroup {
			buf.WriteString(group)
			buf.WriteString(",#genre#\n")
			lastGroup = group
		}
		buf.WriteString(ch.Title())
		for _, url := range ch.Endpoints {
			buf.WriteString(",")
			buf.WriteString(url)
		}
		buf.WriteString("\n")
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

func extinfLine(ch Ranked) string {
	parts := []string{"#EXTINF:-1"}

	written := make(map[string]bool, len(canonicalAttrs))
	for _, key := range canonicalAttrs {
		if value := ch.Attrs[key]; value != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", key, value))
			written[key] = true
		}
	}

	var extras []string
	for key := range ch.Attrs {
		if key != TitleAttr && !written[key] && ch.Attrs[key] != "" {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		parts = append(parts, fmt.Sprintf("%s=%q", key, ch.Attrs[key]))
	}

	return strings.Join(parts, " ") + "," + ch.Title()
}
