package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/snapetech/panelm3u/internal/catalog"
)

// selector is how the export command picks live channels. It is re-resolved
// against every fresh load so category and name matches follow panel changes.
type selector struct {
	ids        []int64
	categories []string
	match      string
	all        bool
}

func (s selector) empty() bool {
	return len(s.ids) == 0 && len(s.categories) == 0 && s.match == "" && !s.all
}

// resolve returns stream ids in order: explicit ids, category members, name matches.
func (s selector) resolve(available []catalog.Channel) []int64 {
	if s.all {
		ids := make([]int64, len(available))
		for i, ch := range available {
			ids[i] = ch.StreamID
		}
		return ids
	}
	ids := append([]int64(nil), s.ids...)
	if len(s.categories) > 0 {
		ids = append(ids, catalog.IDsInCategories(available, s.categories...)...)
	}
	if s.match != "" {
		for _, ch := range matchChannels(available, s.match) {
			ids = append(ids, ch.StreamID)
		}
	}
	return ids
}

// matchChannels keeps channels whose name fuzzy-matches q, case-insensitively.
func matchChannels(channels []catalog.Channel, q string) []catalog.Channel {
	q = strings.TrimSpace(q)
	if q == "" {
		return channels
	}
	var out []catalog.Channel
	for _, ch := range channels {
		if fuzzy.MatchFold(q, ch.Name) {
			out = append(out, ch)
		}
	}
	return out
}

func filterCategories(channels []catalog.Channel, names []string) []catalog.Channel {
	if len(names) == 0 {
		return channels
	}
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var out []catalog.Channel
	for _, ch := range channels {
		if want[ch.Category] {
			out = append(out, ch)
		}
	}
	return out
}

// parseIDs reads a comma-separated list of stream ids.
func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, f := range splitList(s) {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid stream id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// splitList splits on commas, trimming blanks.
func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// multiFlag collects a repeated string flag. Each use is one value, so category
// names may contain commas.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, "|") }

func (m *multiFlag) Set(v string) error {
	if v = strings.TrimSpace(v); v != "" {
		*m = append(*m, v)
	}
	return nil
}
