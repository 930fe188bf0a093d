package playlist

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/valyala/bytebufferpool"

	"github.com/snapetech/panelm3u/internal/catalog"
)

const (
	Header = "#EXTM3U"
	LF     = "\n"
	CRLF   = "\r\n"
)

// Item is one playlist entry ready for serialization. Group and Name hold original,
// unescaped text; the writer escapes them.
type Item struct {
	Group string
	Name  string
	URL   string
	Logo  string
}

// Document is the three sections of a generated playlist, written in this order.
type Document struct {
	Live     []Item
	Movies   []Item
	Episodes []Item
}

// Len is the total number of items.
func (d Document) Len() int { return len(d.Live) + len(d.Movies) + len(d.Episodes) }

// WriteStats counts what was written per section and what was dropped.
type WriteStats struct {
	Live     int
	Movies   int
	Episodes int
	Dropped  int
}

// Entries is the number of blocks written.
func (s WriteStats) Entries() int { return s.Live + s.Movies + s.Episodes }

// Writer serializes documents with one line terminator for the whole output.
type Writer struct {
	LineEnding   string // LF or CRLF; anything else is LF
	IncludeLogos bool
}

func (w Writer) eol() string {
	if w.LineEnding == CRLF {
		return CRLF
	}
	return LF
}

// Write serializes doc to out. Items whose URL cannot be written as a single line are skipped.
func (w Writer) Write(out io.Writer, doc Document) (WriteStats, error) {
	bw := bufio.NewWriter(out)
	eol := w.eol()
	var st WriteStats
	bw.WriteString(Header)
	bw.WriteString(eol)
	for _, sec := range []struct {
		items []Item
		n     *int
	}{
		{doc.Live, &st.Live},
		{doc.Movies, &st.Movies},
		{doc.Episodes, &st.Episodes},
	} {
		for _, it := range sec.items {
			if !writableURL(it.URL) {
				st.Dropped++
				continue
			}
			w.writeItem(bw, it, eol)
			*sec.n++
		}
	}
	return st, bw.Flush()
}

// Render is Write into memory.
func (w Writer) Render(doc Document) ([]byte, WriteStats) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	st, _ := w.Write(buf, doc)
	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, st
}

func (w Writer) writeItem(bw *bufio.Writer, it Item, eol string) {
	group := Escape(it.Group)
	if group == "" {
		group = catalog.Uncategorized
	}
	bw.WriteString("#EXTINF:-1")
	if w.IncludeLogos {
		if logo := logoAttr(it.Logo); logo != "" {
			bw.WriteString(` tvg-logo="`)
			bw.WriteString(logo)
			bw.WriteByte('"')
		}
	}
	bw.WriteString(` group-title="`)
	bw.WriteString(group)
	bw.WriteString(`",`)
	bw.WriteString(Escape(it.Name))
	bw.WriteString(eol)
	bw.WriteString(it.URL)
	bw.WriteString(eol)
}

// writableURL rejects URLs that would break the two-line block: empty, a comment
// marker, or containing any whitespace.
func writableURL(u string) bool {
	if u == "" || strings.HasPrefix(u, "#") {
		return false
	}
	return strings.IndexFunc(u, unicode.IsSpace) < 0
}

func logoAttr(logo string) string {
	logo = strings.ReplaceAll(strings.TrimSpace(logo), `"`, "")
	if logo == "" || strings.ContainsRune(logo, ',') || strings.IndexFunc(logo, unicode.IsSpace) >= 0 {
		return ""
	}
	return logo
}
