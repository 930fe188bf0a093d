package main

import (
	"flag"
	"reflect"
	"testing"

	"github.com/snapetech/panelm3u/internal/catalog"
)

var testChannels = []catalog.Channel{
	{StreamID: 1, Name: "ESPN HD", Category: "Sports, Intl"},
	{StreamID: 2, Name: "Fox Sports 1", Category: "Sports, Intl"},
	{StreamID: 3, Name: "CNN", Category: "News"},
	{StreamID: 4, Name: "BBC News", Category: "News"},
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 3, 1,,2 ")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []int64{3, 1, 2}) {
		t.Fatalf("ids = %v", ids)
	}
	if _, err := parseIDs("1,x"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if ids, _ := parseIDs(""); len(ids) != 0 {
		t.Fatalf("empty input gave %v", ids)
	}
}

func TestMultiFlag_keepsCommas(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	var cats multiFlag
	fs.Var(&cats, "category", "")
	if err := fs.Parse([]string{"-category", "Sports, Intl", "-category", "News"}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual([]string(cats), []string{"Sports, Intl", "News"}) {
		t.Fatalf("cats = %q", cats)
	}
}

func TestSelector_resolveOrder(t *testing.T) {
	sel := selector{ids: []int64{4}, categories: []string{"Sports, Intl"}, match: "cnn"}
	got := sel.resolve(testChannels)
	if !reflect.DeepEqual(got, []int64{4, 1, 2, 3}) {
		t.Fatalf("resolve = %v", got)
	}
}

func TestSelector_all(t *testing.T) {
	got := selector{all: true}.resolve(testChannels)
	if !reflect.DeepEqual(got, []int64{1, 2, 3, 4}) {
		t.Fatalf("resolve = %v", got)
	}
	if !(selector{}).empty() {
		t.Fatal("zero selector should be empty")
	}
}

func TestMatchChannels(t *testing.T) {
	got := matchChannels(testChannels, "news")
	if len(got) != 1 || got[0].StreamID != 4 {
		t.Fatalf("match news = %+v", got)
	}
	if len(matchChannels(testChannels, " ")) != len(testChannels) {
		t.Fatal("blank query should keep everything")
	}
	if len(matchChannels(testChannels, "spts")) != 1 {
		t.Fatal("fuzzy subsequence should match Fox Sports 1")
	}
}

func TestFilterCategories(t *testing.T) {
	got := filterCategories(testChannels, []string{"News"})
	if len(got) != 2 || got[0].StreamID != 3 {
		t.Fatalf("filter = %+v", got)
	}
}
