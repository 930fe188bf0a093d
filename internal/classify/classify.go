// Package classify joins catalog items to their category display names and builds
// the category index the selection UI shows.
package classify

import (
	"sort"
	"strings"

	"github.com/snapetech/panelm3u/internal/catalog"
)

// CategoryMap is category id → display name as reduced from a *_categories response.
type CategoryMap map[string]string

// NewCategoryMap reduces a category list to id → name. Later duplicates of an id are ignored.
func NewCategoryMap(cats []catalog.Category) CategoryMap {
	m := make(CategoryMap, len(cats))
	for _, c := range cats {
		if _, ok := m[c.ID]; ok {
			continue
		}
		m[c.ID] = c.Name
	}
	return m
}

// Resolve always returns a non-empty name: unknown ids and blank names become catalog.Uncategorized.
func (m CategoryMap) Resolve(id string) string {
	if name, ok := m[id]; ok {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return catalog.Uncategorized
}

// Channels returns a copy of items with Category set.
func Channels(items []catalog.Channel, cats CategoryMap) []catalog.Channel {
	out := make([]catalog.Channel, len(items))
	for i, it := range items {
		it.Category = cats.Resolve(it.CategoryID)
		out[i] = it
	}
	return out
}

// Movies returns a copy of items with Category set.
func Movies(items []catalog.Movie, cats CategoryMap) []catalog.Movie {
	out := make([]catalog.Movie, len(items))
	for i, it := range items {
		it.Category = cats.Resolve(it.CategoryID)
		out[i] = it
	}
	return out
}

// Series returns a copy of items with Category set.
func Series(items []catalog.SeriesRef, cats CategoryMap) []catalog.SeriesRef {
	out := make([]catalog.SeriesRef, len(items))
	for i, it := range items {
		it.Category = cats.Resolve(it.CategoryID)
		out[i] = it
	}
	return out
}

// Names returns the distinct category names of classified items, sorted byte-wise (case-sensitive).
func Names[T any](items []T, category func(T) string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, it := range items {
		n := category(it)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ChannelNames is Names for live channels.
func ChannelNames(items []catalog.Channel) []string {
	return Names(items, func(c catalog.Channel) string { return c.Category })
}

// MovieNames is Names for movies.
func MovieNames(items []catalog.Movie) []string {
	return Names(items, func(m catalog.Movie) string { return m.Category })
}

// SeriesNames is Names for series.
func SeriesNames(items []catalog.SeriesRef) []string {
	return Names(items, func(s catalog.SeriesRef) string { return s.Category })
}

// Group is one category and its channels, in catalog order.
type Group struct {
	Name     string
	Channels []catalog.Channel
}

// ByCategory indexes classified channels by category, groups ordered like ChannelNames.
func ByCategory(items []catalog.Channel) []Group {
	idx := make(map[string]int)
	var groups []Group
	for _, ch := range items {
		i, ok := idx[ch.Category]
		if !ok {
			i = len(groups)
			idx[ch.Category] = i
			groups = append(groups, Group{Name: ch.Category})
		}
		groups[i].Channels = append(groups[i].Channels, ch)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}
