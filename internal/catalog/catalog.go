package catalog

import (
	"sync"
)

// Uncategorized is the display name for items whose category is missing, unknown or blank.
// Every unresolved item shares it so they group together.
const Uncategorized = "Uncategorized"

// DefaultMovieExtension is used when the panel omits container_extension.
const DefaultMovieExtension = "mp4"

// Category is a named grouping from one of the *_categories actions.
// IDs are normalized to strings at decode time (panels send numbers or strings).
type Category struct {
	ID   string `json:"category_id"`
	Name string `json:"category_name"`
}

// Channel is a live stream. Category is the resolved display name, filled in by classify.
type Channel struct {
	StreamID     int64  `json:"stream_id"`
	Name         string `json:"name"`
	CategoryID   string `json:"category_id,omitempty"`
	Category     string `json:"category,omitempty"`
	Icon         string `json:"stream_icon,omitempty"`
	EPGChannelID string `json:"epg_channel_id,omitempty"`
}

// Movie is a VOD entry.
type Movie struct {
	StreamID           int64  `json:"stream_id"`
	Name               string `json:"name"`
	ContainerExtension string `json:"container_extension"`
	CategoryID         string `json:"category_id,omitempty"`
	Category           string `json:"category,omitempty"`
	Icon               string `json:"stream_icon,omitempty"`
}

// SeriesRef is one row of get_series; its episodes come from get_series_info.
type SeriesRef struct {
	SeriesID   int64  `json:"series_id"`
	Name       string `json:"name"`
	CategoryID string `json:"category_id,omitempty"`
	Category   string `json:"category,omitempty"`
	Cover      string `json:"cover,omitempty"`
}

// Episode belongs to a series by SeriesID only. Season is the upstream key as-is
// (often a numeric-looking string) and is never coerced.
type Episode struct {
	ID                 string `json:"id"`
	SeriesID           int64  `json:"series_id"`
	Season             string `json:"season"`
	EpisodeNum         string `json:"episode_num"`
	Title              string `json:"title"`
	ContainerExtension string `json:"container_extension"`
	Category           string `json:"category,omitempty"`
	Cover              string `json:"cover,omitempty"`
}

// Catalog is one fetched panel catalog (already classified). It lives only for a
// fetch-select-generate cycle and is never written to disk.
type Catalog struct {
	mu     sync.RWMutex
	Live   []Channel
	Movies []Movie
	Series []SeriesRef
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// Replace swaps all three sections.
func (c *Catalog) Replace(live []Channel, movies []Movie, series []SeriesRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Live = live
	c.Movies = movies
	c.Series = series
}

// Snapshot returns copies of all sections for read-only use.
func (c *Catalog) Snapshot() (live []Channel, movies []Movie, series []SeriesRef) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	live = make([]Channel, len(c.Live))
	copy(live, c.Live)
	movies = make([]Movie, len(c.Movies))
	copy(movies, c.Movies)
	series = make([]SeriesRef, len(c.Series))
	copy(series, c.Series)
	return live, movies, series
}

// SnapshotLive returns a copy of the live channels.
func (c *Catalog) SnapshotLive() []Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Channel, len(c.Live))
	copy(out, c.Live)
	return out
}

// Counts returns section sizes.
func (c *Catalog) Counts() (live, movies, series int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Live), len(c.Movies), len(c.Series)
}
