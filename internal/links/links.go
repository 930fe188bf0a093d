// Package links builds playback URLs for catalog items. Nothing here does I/O.
package links

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/credentials"
)

// Format selects the live URL variant. It reflects what the player needs, not the item.
type Format string

const (
	FormatTS  Format = "ts"
	FormatHLS Format = "m3u8"
)

// ParseFormat maps "ts" / "m3u8" (or "hls"), in any case, to a Format; anything else is FormatTS.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m3u8", "hls":
		return FormatHLS
	default:
		return FormatTS
	}
}

// KnownFormat reports whether s names a format ParseFormat understands.
func KnownFormat(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ts", "m3u8", "hls":
		return true
	}
	return false
}

// Live returns {host}/live/{user}/{pass}/{id}.ts or .m3u8.
func Live(c credentials.Connection, streamID int64, f Format) string {
	if f != FormatHLS {
		f = FormatTS
	}
	return build(c, "live", strconv.FormatInt(streamID, 10), string(f))
}

// Movie returns {host}/movie/{user}/{pass}/{id}.{ext}.
func Movie(c credentials.Connection, m catalog.Movie) string {
	ext := m.ContainerExtension
	if ext == "" {
		ext = catalog.DefaultMovieExtension
	}
	return build(c, "movie", strconv.FormatInt(m.StreamID, 10), ext)
}

// Episode returns {host}/series/{user}/{pass}/{episode id}.{ext}.
func Episode(c credentials.Connection, e catalog.Episode) string {
	ext := e.ContainerExtension
	if ext == "" {
		ext = catalog.DefaultMovieExtension
	}
	return build(c, "series", e.ID, ext)
}

func build(c credentials.Connection, kind, id, ext string) string {
	return c.Host + "/" + kind + "/" + url.PathEscape(c.Username) + "/" + url.PathEscape(c.Password) + "/" +
		url.PathEscape(id) + "." + url.PathEscape(ext)
}
