package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapetech/panelm3u/internal/catalog"
)

func TestResolve_fallback(t *testing.T) {
	cats := NewCategoryMap([]catalog.Category{
		{ID: "9", Name: "Sports, Intl"},
		{ID: "10", Name: "  "},
		{ID: "9", Name: "duplicate ignored"},
	})
	assert.Equal(t, "Sports, Intl", cats.Resolve("9"))
	assert.Equal(t, catalog.Uncategorized, cats.Resolve("10"), "blank name")
	assert.Equal(t, catalog.Uncategorized, cats.Resolve("404"), "unknown id")
	assert.Equal(t, catalog.Uncategorized, cats.Resolve(""), "missing id")

	var nilMap CategoryMap
	assert.Equal(t, catalog.Uncategorized, nilMap.Resolve("9"), "no category list at all")
}

func TestChannels_annotatesCopy(t *testing.T) {
	items := []catalog.Channel{
		{StreamID: 501, Name: `ESPN "HD"`, CategoryID: "9"},
		{StreamID: 502, Name: "Orphan", CategoryID: "77"},
	}
	out := Channels(items, NewCategoryMap([]catalog.Category{{ID: "9", Name: "Sports, Intl"}}))
	require.Len(t, out, 2)
	assert.Equal(t, "Sports, Intl", out[0].Category)
	assert.Equal(t, `ESPN "HD"`, out[0].Name, "names are never escaped here")
	assert.Equal(t, catalog.Uncategorized, out[1].Category)
	assert.Empty(t, items[0].Category, "input must not be mutated")
}

func TestMoviesAndSeries(t *testing.T) {
	cats := NewCategoryMap([]catalog.Category{{ID: "1", Name: "Action"}})
	movies := Movies([]catalog.Movie{{StreamID: 1, CategoryID: "1"}, {StreamID: 2}}, cats)
	assert.Equal(t, []string{"Action", catalog.Uncategorized}, MovieNames(movies))
	series := Series([]catalog.SeriesRef{{SeriesID: 1, CategoryID: "2"}}, cats)
	assert.Equal(t, []string{catalog.Uncategorized}, SeriesNames(series))
}

func TestNames_sortedUniqueCaseSensitive(t *testing.T) {
	items := []catalog.Channel{
		{Category: "sports"}, {Category: "News"}, {Category: "Sports"}, {Category: "News"}, {Category: catalog.Uncategorized},
	}
	assert.Equal(t, []string{"News", "Sports", catalog.Uncategorized, "sports"}, ChannelNames(items))
	assert.Empty(t, ChannelNames(nil))
}

func TestUnresolvedShareOneBucket(t *testing.T) {
	items := Channels([]catalog.Channel{
		{StreamID: 1, CategoryID: "a"}, {StreamID: 2, CategoryID: "b"}, {StreamID: 3},
	}, nil)
	groups := ByCategory(items)
	require.Len(t, groups, 1)
	assert.Equal(t, catalog.Uncategorized, groups[0].Name)
	assert.Len(t, groups[0].Channels, 3)
}

func TestByCategory_order(t *testing.T) {
	items := []catalog.Channel{
		{StreamID: 1, Category: "Sports"}, {StreamID: 2, Category: "News"}, {StreamID: 3, Category: "Sports"},
	}
	groups := ByCategory(items)
	require.Len(t, groups, 2)
	assert.Equal(t, "News", groups[0].Name)
	assert.Equal(t, "Sports", groups[1].Name)
	assert.Equal(t, int64(1), groups[1].Channels[0].StreamID)
	assert.Equal(t, int64(3), groups[1].Channels[1].StreamID)
}
