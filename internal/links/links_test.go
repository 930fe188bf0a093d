package links

import (
	"strings"
	"testing"

	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/credentials"
)

var conn = credentials.Connection{Host: "http://x.test", Username: "a", Password: "b"}

func TestLive(t *testing.T) {
	if got := Live(conn, 501, FormatTS); got != "http://x.test/live/a/b/501.ts" {
		t.Errorf("Live ts = %q", got)
	}
	if got := Live(conn, 501, FormatHLS); got != "http://x.test/live/a/b/501.m3u8" {
		t.Errorf("Live m3u8 = %q", got)
	}
	if got := Live(conn, 7, Format("bogus")); got != "http://x.test/live/a/b/7.ts" {
		t.Errorf("unknown format should fall back to ts; got %q", got)
	}
}

func TestMovie(t *testing.T) {
	if got := Movie(conn, catalog.Movie{StreamID: 9, ContainerExtension: "mkv"}); got != "http://x.test/movie/a/b/9.mkv" {
		t.Errorf("Movie = %q", got)
	}
	if got := Movie(conn, catalog.Movie{StreamID: 9}); got != "http://x.test/movie/a/b/9.mp4" {
		t.Errorf("Movie default ext = %q", got)
	}
}

func TestEpisode(t *testing.T) {
	if got := Episode(conn, catalog.Episode{ID: "1234", ContainerExtension: "mp4"}); got != "http://x.test/series/a/b/1234.mp4" {
		t.Errorf("Episode = %q", got)
	}
}

func TestPathEscaping(t *testing.T) {
	c := credentials.Connection{Host: "https://h.example:8443", Username: "me@x", Password: "p/ss word"}
	want := "https://h.example:8443/live/me@x/p%2Fss%20word/1.ts"
	if got := Live(c, 1, FormatTS); got != want {
		t.Errorf("Live = %q, want %q", got, want)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"ts": FormatTS, "m3u8": FormatHLS, "hls": FormatHLS, "": FormatTS, "mp4": FormatTS,
		"M3U8": FormatHLS, "Hls": FormatHLS, " m3u8 ": FormatHLS, "TS": FormatTS,
	} {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKnownFormat(t *testing.T) {
	for in, want := range map[string]bool{
		"ts": true, "TS": true, "m3u8": true, "M3U8": true, "hls": true, "HLS": true,
		"": false, "mp4": false, "flv": false,
	} {
		if got := KnownFormat(in); got != want {
			t.Errorf("KnownFormat(%q) = %v, want %v", in, got, want)
		}
		if want && in != "" && (ParseFormat(in) == FormatHLS) != (strings.ToLower(in) != "ts") {
			t.Errorf("ParseFormat(%q) = %q disagrees with KnownFormat", in, ParseFormat(in))
		}
	}
}
