package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/provider"
)

func TestLiveStreams_looseFieldsAndSkips(t *testing.T) {
	p := newFakePanel(t)
	p.bodies["get_live_streams"] = `[
		{"stream_id": 501, "name": "ESPN \"HD\"", "category_id": 9, "stream_icon": "http://img/e.png", "epg_channel_id": "espn.us"},
		{"stream_id": "502", "name": "  CNN  ", "category_id": "10", "epg_channel_id": null},
		{"stream_id": 503.0, "name": 1234, "category_id": null},
		{"name": "no id"},
		{"stream_id": "abc", "name": "bad id"},
		{"stream_id": {"x": 1}, "name": "object id"},
		"not an object",
		{"stream_id": 504},
		{"stream_id": 505, "name": "Array icon", "stream_icon": ["x"]},
		{"stream_id": 506, "name": "Object epg", "epg_channel_id": {}},
		{"stream_id": 507, "name": "Bool icon", "stream_icon": false, "category_id": true}
	]`
	f := p.client(t).LiveStreams(context.Background())
	require.True(t, f.OK(), "status %s err %v", f.Status, f.Err)
	assert.Equal(t, 4, f.Skipped)
	require.Len(t, f.Items, 7)
	assert.Equal(t, catalog.Channel{StreamID: 501, Name: `ESPN "HD"`, CategoryID: "9", Icon: "http://img/e.png", EPGChannelID: "espn.us"}, f.Items[0])
	assert.Equal(t, "CNN", f.Items[1].Name)
	assert.Equal(t, "10", f.Items[1].CategoryID)
	assert.Equal(t, int64(503), f.Items[2].StreamID)
	assert.Equal(t, "1234", f.Items[2].Name)
	assert.Empty(t, f.Items[2].CategoryID)
	assert.Equal(t, "Channel 504", f.Items[3].Name)

	// non-scalar optional fields decode as empty instead of dropping the item
	assert.Equal(t, catalog.Channel{StreamID: 505, Name: "Array icon"}, f.Items[4])
	assert.Equal(t, catalog.Channel{StreamID: 506, Name: "Object epg"}, f.Items[5])
	assert.Equal(t, catalog.Channel{StreamID: 507, Name: "Bool icon"}, f.Items[6])
}

func TestCategories(t *testing.T) {
	p := newFakePanel(t)
	p.bodies["get_live_categories"] = `[{"category_id":"9","category_name":"Sports, Intl"},{"category_id":10,"category_name":""},{"category_name":"no id"}]`
	f := p.client(t).LiveCategories(context.Background())
	require.True(t, f.OK())
	assert.Equal(t, []catalog.Category{{ID: "9", Name: "Sports, Intl"}, {ID: "10", Name: ""}}, f.Items)
	assert.Equal(t, 1, f.Skipped)
}

func TestFacet_failures(t *testing.T) {
	p := newFakePanel(t)
	p.bodies["get_vod_categories"] = `{"user_info":{}}`
	p.bodies["get_vod_streams"] = "!503"
	p.bodies["get_series_categories"] = "!sleep"
	p.bodies["get_live_categories"] = `[{"category_id": 1`
	c := p.client(t)
	ctx := context.Background()

	f := c.VODCategories(ctx)
	assert.Equal(t, provider.StatusMalformed, f.Status, "object where array required")
	assert.Empty(t, f.Items)
	assert.Error(t, f.Err)

	m := c.VODStreams(ctx)
	assert.Equal(t, provider.StatusBadStatus, m.Status)

	s := c.SeriesCategories(ctx)
	assert.Equal(t, provider.StatusTimeout, s.Status)

	l := c.LiveCategories(ctx)
	assert.Equal(t, provider.StatusMalformed, l.Status, "truncated JSON")
}

func TestFacet_unreachable(t *testing.T) {
	p := newFakePanel(t)
	c := p.client(t)
	p.srv.Close()
	f := c.LiveStreams(context.Background())
	assert.Equal(t, provider.StatusUnreachable, f.Status)
	assert.False(t, f.OK())
}

func TestVODStreams_extensionDefault(t *testing.T) {
	p := newFakePanel(t)
	p.bodies["get_vod_streams"] = `[
		{"stream_id": 9, "name": "Heat", "container_extension": "mkv", "category_id": "3"},
		{"stream_id": 10, "name": "NoExt"},
		{"stream_id": 11, "name": "Weird", "container_extension": "application/x-mpegurl"}
	]`
	f := p.client(t).VODStreams(context.Background())
	require.True(t, f.OK())
	require.Len(t, f.Items, 3)
	assert.Equal(t, "mkv", f.Items[0].ContainerExtension)
	assert.Equal(t, catalog.DefaultMovieExtension, f.Items[1].ContainerExtension)
	assert.Equal(t, catalog.DefaultMovieExtension, f.Items[2].ContainerExtension)
}

func TestSeries_arrayOrObject(t *testing.T) {
	p := newFakePanel(t)
	p.bodies["get_series"] = `[{"series_id": 7, "name": "Show", "category_id": "2", "cover": "http://img/c.jpg"}, {"id": "8", "name": "Alt"}]`
	f := p.client(t).Series(context.Background())
	require.True(t, f.OK())
	require.Len(t, f.Items, 2)
	assert.Equal(t, int64(7), f.Items[0].SeriesID)
	assert.Equal(t, "http://img/c.jpg", f.Items[0].Cover)
	assert.Equal(t, int64(8), f.Items[1].SeriesID)

	p.bodies["get_series"] = `{"12": {"series_id": 12, "name": "Twelve"}, "3": {"series_id": 3, "name": "Three"}}`
	f = p.client(t).Series(context.Background())
	require.True(t, f.OK())
	require.Len(t, f.Items, 2)
	assert.Equal(t, int64(3), f.Items[0].SeriesID, "numeric keys in numeric order")
	assert.Equal(t, int64(12), f.Items[1].SeriesID)
}

func TestSeriesInfo(t *testing.T) {
	p := newFakePanel(t)
	p.series["7"] = `{"info": {"name": "Show"}, "episodes": {
		"2": [{"id": "201", "episode_num": 1, "title": "", "container_extension": "mkv", "info": []}],
		"1": [
			{"id": 101, "episode_num": "1", "title": "Pilot", "season": "1", "info": {"movie_image": "http://img/101.jpg"}},
			{"title": "no id at all"}
		],
		"Specials": "not a list"
	}}`
	ref := catalog.SeriesRef{SeriesID: 7, Name: "Show", Category: "Drama", Cover: "http://img/c.jpg"}
	f := p.client(t).SeriesInfo(context.Background(), ref)
	require.True(t, f.OK(), "status %s err %v", f.Status, f.Err)
	assert.Equal(t, 2, f.Skipped, "bad episode and bad season")
	require.Len(t, f.Items, 2)

	pilot := f.Items[0]
	assert.Equal(t, "101", pilot.ID)
	assert.Equal(t, "Pilot", pilot.Title)
	assert.Equal(t, "1", pilot.Season)
	assert.Equal(t, int64(7), pilot.SeriesID)
	assert.Equal(t, "Drama", pilot.Category)
	assert.Equal(t, "http://img/101.jpg", pilot.Cover)
	assert.Equal(t, catalog.DefaultMovieExtension, pilot.ContainerExtension)

	s2 := f.Items[1]
	assert.Equal(t, "201", s2.ID)
	assert.Equal(t, "2", s2.Season, "season falls back to the key, verbatim")
	assert.Equal(t, "Show S2 E1", s2.Title)
	assert.Equal(t, "mkv", s2.ContainerExtension)
	assert.Equal(t, "http://img/c.jpg", s2.Cover)
}

func TestSeriesInfo_episodeWithoutIDSkipped(t *testing.T) {
	p := newFakePanel(t)
	p.series["9"] = `{"episodes": {"1": [
		{"episode_num": 3, "container_extension": "mkv"},
		{"id": "", "episode_num": 4},
		{"id": null, "episode_num": 5},
		{"id": "905", "episode_num": 6}
	]}}`
	f := p.client(t).SeriesInfo(context.Background(), catalog.SeriesRef{SeriesID: 9, Name: "Show"})
	require.True(t, f.OK(), "status %s err %v", f.Status, f.Err)
	assert.Equal(t, 3, f.Skipped)
	require.Len(t, f.Items, 1)
	assert.Equal(t, "905", f.Items[0].ID)
	assert.Equal(t, "6", f.Items[0].EpisodeNum)
}

func TestSeriesInfo_episodesShape(t *testing.T) {
	p := newFakePanel(t)
	p.series["1"] = `{"info": {}, "episodes": {}}`
	p.series["2"] = `{"info": {}}`
	p.series["3"] = `{"info": {}, "episodes": []}`
	p.series["4"] = `{"info": {}, "episodes": null}`
	c := p.client(t)
	ctx := context.Background()

	empty := c.SeriesInfo(ctx, catalog.SeriesRef{SeriesID: 1})
	assert.True(t, empty.OK())
	assert.Empty(t, empty.Items)

	for _, id := range []int64{2, 3, 4} {
		f := c.SeriesInfo(ctx, catalog.SeriesRef{SeriesID: id})
		assert.Equal(t, provider.StatusMalformed, f.Status, "series %d", id)
		assert.Empty(t, f.Items)
	}
}

func TestEpisodeTitle_opaqueSeason(t *testing.T) {
	assert.Equal(t, "Show S01 E007", EpisodeTitle("Show", "01", "007"))
	assert.Equal(t, "Show SSpecials E1", EpisodeTitle("Show", "Specials", "1"))
}

func TestClient_noRetries(t *testing.T) {
	p := newFakePanel(t)
	p.bodies["get_live_categories"] = `[]`
	c := p.client(t)
	f := c.LiveCategories(context.Background())
	require.True(t, f.OK())
	assert.Empty(t, f.Items)
	assert.Equal(t, int64(1), p.requests.Load(), "no retries")
}
