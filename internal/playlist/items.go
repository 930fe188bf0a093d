package playlist

import (
	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/credentials"
	"github.com/snapetech/panelm3u/internal/links"
)

// LiveItems maps selected channels to items using the requested live URL variant.
func LiveItems(conn credentials.Connection, channels []catalog.Channel, f links.Format) []Item {
	out := make([]Item, 0, len(channels))
	for _, ch := range channels {
		out = append(out, Item{
			Group: ch.Category,
			Name:  ch.Name,
			URL:   links.Live(conn, ch.StreamID, f),
			Logo:  ch.Icon,
		})
	}
	return out
}

// MovieItems maps movies to items.
func MovieItems(conn credentials.Connection, movies []catalog.Movie) []Item {
	out := make([]Item, 0, len(movies))
	for _, m := range movies {
		out = append(out, Item{
			Group: m.Category,
			Name:  m.Name,
			URL:   links.Movie(conn, m),
			Logo:  m.Icon,
		})
	}
	return out
}

// EpisodeItems maps episodes to items.
func EpisodeItems(conn credentials.Connection, episodes []catalog.Episode) []Item {
	out := make([]Item, 0, len(episodes))
	for _, e := range episodes {
		out = append(out, Item{
			Group: e.Category,
			Name:  e.Title,
			URL:   links.Episode(conn, e),
			Logo:  e.Cover,
		})
	}
	return out
}

// EntryItem converts a parsed entry back into a writable item.
func EntryItem(e Entry) Item {
	return Item{Group: e.Group, Name: e.Title, URL: e.URL}
}
