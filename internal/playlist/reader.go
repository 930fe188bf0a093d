// Package playlist reads and writes #EXTM3U documents.
package playlist

import (
	"bufio"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/snapetech/panelm3u/internal/catalog"
)

const (
	extinfPrefix = "#EXTINF:"
	extgrpPrefix = "#EXTGRP:"
	groupAttr    = `group-title="`

	// MaxLineSize caps one line of input; longer lines stop the reader with bufio.ErrTooLong.
	MaxLineSize = 1 << 20
)

// Kind is the classification of one playlist entry.
type Kind int

const (
	KindLive Kind = iota
	KindVOD
)

func (k Kind) String() string {
	if k == KindVOD {
		return "vod"
	}
	return "live"
}

// Entry is one #EXTINF + URL block.
type Entry struct {
	Kind  Kind
	Group string
	Title string
	URL   string
}

// Stats counts what the reader saw so far.
type Stats struct {
	Lines    int // non-empty lines
	Entries  int
	Live     int
	VOD      int
	Orphans  int // URL lines with no pending #EXTINF
	Dangling int // #EXTINF lines never followed by a URL
}

type readerState int

const (
	awaitingMetadata readerState = iota
	awaitingURL
)

// Reader parses a playlist one entry at a time without holding the document in memory.
// Use it like bufio.Scanner:
//
//	r := playlist.NewReader(body)
//	for r.Next() {
//		e := r.Entry()
//	}
//	if err := r.Err(); err != nil { ... }
//
// Malformed input never fails the reader; out-of-order lines are dropped and counted.
// Err reports only read errors from the underlying stream (including over-long lines).
type Reader struct {
	sc     *bufio.Scanner
	state  readerState
	extinf string
	extgrp string
	entry  Entry
	stats  Stats
	first  bool
	done   bool
	err    error
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Reader{sc: sc, first: true}
}

// Next advances to the next entry. It returns false at end of input or on a read error.
func (r *Reader) Next() bool {
	if r.done {
		return false
	}
	for r.sc.Scan() {
		line := r.sc.Text()
		if r.first {
			line = strings.TrimPrefix(line, "\ufeff")
			r.first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.stats.Lines++
		if strings.HasPrefix(line, "#") {
			r.comment(line)
			continue
		}
		if r.state != awaitingURL {
			r.stats.Orphans++
			continue
		}
		r.entry = newEntry(r.extinf, r.extgrp, line)
		r.extinf, r.extgrp = "", ""
		r.state = awaitingMetadata
		r.stats.Entries++
		if r.entry.Kind == KindVOD {
			r.stats.VOD++
		} else {
			r.stats.Live++
		}
		return true
	}
	r.done = true
	r.err = r.sc.Err()
	if r.state == awaitingURL {
		r.stats.Dangling++
		r.state = awaitingMetadata
	}
	return false
}

func (r *Reader) comment(line string) {
	switch {
	case strings.HasPrefix(line, extinfPrefix):
		if r.state == awaitingURL {
			r.stats.Dangling++
		}
		r.extinf = line
		r.state = awaitingURL
	case strings.HasPrefix(line, extgrpPrefix):
		r.extgrp = strings.TrimSpace(line[len(extgrpPrefix):])
	}
}

// Entry returns the entry produced by the last successful Next.
func (r *Reader) Entry() Entry { return r.entry }

// Err returns the first read error, if any. It is nil at a clean end of input.
func (r *Reader) Err() error { return r.err }

// Stats returns counters for everything read so far.
func (r *Reader) Stats() Stats { return r.stats }

func newEntry(extinf, extgrp, rawURL string) Entry {
	group := groupTitle(extinf)
	if group == "" {
		group = extgrp
	}
	if group == "" {
		group = catalog.Uncategorized
	}
	return Entry{
		Kind:  Classify(rawURL),
		Group: group,
		Title: displayName(extinf),
		URL:   rawURL,
	}
}

// groupTitle returns the first group-title="..." value, or "" if absent or unterminated.
func groupTitle(extinf string) string {
	i := strings.Index(extinf, groupAttr)
	if i < 0 {
		return ""
	}
	rest := extinf[i+len(groupAttr):]
	j := strings.IndexByte(rest, '"')
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:j])
}

// displayName is the text after the last comma, escaped.
func displayName(extinf string) string {
	if i := strings.LastIndexByte(extinf, ','); i >= 0 {
		return Escape(extinf[i+1:])
	}
	return ""
}

var vodContainers = map[string]bool{
	".mp4": true,
	".mkv": true,
	".avi": true,
	".mov": true,
	".m4v": true,
}

// Classify decides Live vs VOD from a media URL. /movie/ and /series/ win over /live/;
// a URL with neither marker is VOD only when its path ends in a file container.
func Classify(rawURL string) Kind {
	if strings.Contains(rawURL, "/movie/") || strings.Contains(rawURL, "/series/") {
		return KindVOD
	}
	if strings.Contains(rawURL, "/live/") {
		return KindLive
	}
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if vodContainers[strings.ToLower(path.Ext(p))] {
		return KindVOD
	}
	return KindLive
}
