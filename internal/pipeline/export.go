package pipeline

import (
	"context"
	"net/url"
	"sort"

	"github.com/gosimple/slug"

	"github.com/snapetech/panelm3u/internal/credentials"
	"github.com/snapetech/panelm3u/internal/playlist"
	"github.com/snapetech/panelm3u/internal/provider"
)

// ExportSummary describes one pass over the bulk export.
type ExportSummary struct {
	Conn   credentials.Connection
	Stats  playlist.Stats
	Status provider.Status
	Err    error // download or read failure; the entries seen before it are still valid
}

// ExportResult is the bulk export classified into live and VOD entries.
type ExportResult struct {
	ExportSummary
	Live []playlist.Entry
	VOD  []playlist.Entry
}

// Groups returns the distinct group names of entries, sorted.
func Groups(entries []playlist.Entry) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range entries {
		if !seen[e.Group] {
			seen[e.Group] = true
			out = append(out, e.Group)
		}
	}
	sort.Strings(out)
	return out
}

// StreamExport opens the panel's bulk export and hands each entry to fn as it is parsed;
// fn returning false stops early. Like Load, the only returned error is
// credentials.ErrInvalidInput. Download failures are reported in the summary.
func (p *Pipeline) StreamExport(ctx context.Context, raw string, fn func(playlist.Entry) bool) (ExportSummary, error) {
	conn, err := credentials.Resolve(raw)
	if err != nil {
		return ExportSummary{}, err
	}
	sum := ExportSummary{Conn: conn}
	exp, st, err := p.client(conn).Export(ctx)
	if err != nil {
		sum.Status, sum.Err = st, err
		return sum, nil
	}
	for exp.Next() {
		if !fn(exp.Entry()) {
			break
		}
	}
	sum.Status, sum.Err = exp.Status(), exp.Err()
	exp.Close()
	sum.Stats = exp.Stats()
	return sum, nil
}

// LoadExport is StreamExport collecting live and VOD entries separately.
func (p *Pipeline) LoadExport(ctx context.Context, raw string) (*ExportResult, error) {
	res := &ExportResult{Live: []playlist.Entry{}, VOD: []playlist.Entry{}}
	sum, err := p.StreamExport(ctx, raw, func(e playlist.Entry) bool {
		if e.Kind == playlist.KindVOD {
			res.VOD = append(res.VOD, e)
		} else {
			res.Live = append(res.Live, e)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	res.ExportSummary = sum
	return res, nil
}

// FileName is the default playlist file name for conn, derived from its host.
func FileName(conn credentials.Connection) string {
	host := conn.Host
	if u, err := url.Parse(conn.Host); err == nil && u.Host != "" {
		host = u.Host
	}
	name := slug.Make(host)
	if name == "" {
		name = "playlist"
	}
	return name + ".m3u"
}
