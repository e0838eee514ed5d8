package selector

import (
	"sort"
	"strconv"

	"iptv-curator/config"
	"iptv-curator/playlist"
)

// Organize assigns every surviving channel a category and produces the
// final total order: configured category blocks first, leftover categories
// after them sorted by label. Inside the numbered-channel family the
// embedded integer sorts ascending with numberless members after all
// numbered ones; every other category sorts by display title.
func Organize(ranked map[string]playlist.Ranked, cfg *config.Config) []playlist.Ranked {
	items := make([]playlist.Ranked, 0, len(ranked))
	for _, ch := range ranked {
		items = append(items, ch)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })

	byCategory := make(map[string][]playlist.Ranked)
	for _, ch := range items {
		cat := resolveCategory(ch, cfg)
		ch.Attrs["group-title"] = cat
		byCategory[cat] = append(byCategory[cat], ch)
	}

	var order []string
	seen := make(map[string]bool)
	for _, cat := range cfg.Categories {
		if len(byCategory[cat]) > 0 && !seen[cat] {
			order = append(order, cat)
			seen[cat] = true
		}
	}
	var leftovers []string
	for cat := range byCategory {
		if !seen[cat] {
			leftovers = append(leftovers, cat)
		}
	}
	sort.Strings(leftovers)
	order = append(order, leftovers...)

	out := make([]playlist.Ranked, 0, len(items))
	for _, cat := range order {
		block := byCategory[cat]
		if cat == cfg.NumberedCategory && cfg.NumberedRe() != nil {
			sortNumbered(block, cfg)
		} else {
			sort.SliceStable(block, func(i, j int) bool { return block[i].Title() < block[j].Title() })
		}
		out = append(out, block...)
	}
	return out
}

// resolveCategory: explicit attribute first, then the keyword table, then
// the catch-all category.
func resolveCategory(ch playlist.Ranked, cfg *config.Config) string {
	if group := ch.Attrs["group-title"]; group != "" {
		return group
	}
	if cat, ok := cfg.MatchCategory(ch.Title()); ok {
		return cat
	}
	return cfg.DefaultCategory
}

// sortNumbered orders the numbered family by its embedded integer.
// Channels without an extractable number keep their relative order after
// all numbered ones.
func sortNumbered(block []playlist.Ranked, cfg *config.Config) {
	sort.SliceStable(block, func(i, j int) bool {
		ni, oki := channelNumber(block[i].Title(), cfg)
		nj, okj := channelNumber(block[j].Title(), cfg)
		if oki && okj {
			return ni < nj
		}
		return oki && !okj
	})
}

func channelNumber(title string, cfg *config.Config) (int, bool) {
	match := cfg.NumberedRe().FindStringSubmatch(title)
	if len(match) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
