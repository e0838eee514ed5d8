package playlist

import "strings"

// TitleAttr is the attribute key holding the free-text display title. It is
// stored alongside the tvg attributes but never rendered as a key="value"
// pair.
const TitleAttr = "title"

// Record is one logical channel as accumulated from the source playlists:
// its stable key, its metadata attributes and every distinct candidate URL
// seen for it so far.
type Record struct {
	Key   string
	Attrs map[string]string
	URLs  []string
}

func NewRecord(key string) *Record {
	return &Record{
		Key:   key,
		Attrs: make(map[string]string),
	}
}

// AddURL appends a candidate URL unless the trimmed string is empty or
// already present. URL equality is exact-string after trimming.
func (r *Record) AddURL(url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	for _, existing := range r.URLs {
		if existing == url {
			return
		}
	}
	r.URLs = append(r.URLs, url)
}

// SetIfMissing adds an attribute only when the key has no value yet.
// Existing values are never overwritten during parsing or merging.
func (r *Record) SetIfMissing(key, value string) {
	if value == "" {
		return
	}
	if _, ok := r.Attrs[key]; !ok {
		r.Attrs[key] = value
	}
}

func (r *Record) Title() string {
	return r.Attrs[TitleAttr]
}

func (r *Record) SetTitle(title string) {
	r.Attrs[TitleAttr] = title
}

// Clone returns a deep copy. The merge index never mutates stored records
// in place; it replaces them with merged clones.
func (r *Record) Clone() *Record {
	out := &Record{
		Key:   r.Key,
		Attrs: make(map[string]string, len(r.Attrs)),
		URLs:  append([]string(nil), r.URLs...),
	}
	for k, v := range r.Attrs {
		out.Attrs[k] = v
	}
	return out
}

// Ranked is a channel that survived verification and selection: its
// attributes carry a resolved category and Endpoints holds the primary
// stream first, fallbacks after it in ascending latency order.
type Ranked struct {
	Key       string
	Attrs     map[string]string
	Endpoints []string
}

func (c Ranked) Title() string {
	return c.Attrs[TitleAttr]
}

func (c Ranked) Category() string {
	return c.Attrs["group-title"]
}
