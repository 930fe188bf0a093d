// Package pipeline sequences a panel load and playlist generation: resolve the
// connection, fetch every facet in parallel, classify, then on request fan out over
// series detail and render the playlist.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/classify"
	"github.com/snapetech/panelm3u/internal/credentials"
	"github.com/snapetech/panelm3u/internal/httpclient"
	"github.com/snapetech/panelm3u/internal/indexer"
	"github.com/snapetech/panelm3u/internal/links"
	"github.com/snapetech/panelm3u/internal/metrics"
	"github.com/snapetech/panelm3u/internal/playlist"
	"github.com/snapetech/panelm3u/internal/provider"
)

// Options configures a Pipeline.
type Options struct {
	Workers         int
	Budgets         httpclient.Budgets
	DetailRPS       float64 // 0 = unpaced
	HostConcurrency int
	UserAgent       string
	LiveFormat      links.Format
	Writer          playlist.Writer
	Metrics         *metrics.Metrics
	Logger          zerolog.Logger
}

// Pipeline is safe for concurrent use; it holds configuration only.
type Pipeline struct {
	opts Options
}

// New returns a pipeline.
func New(o Options) *Pipeline {
	if o.Workers <= 0 {
		o.Workers = indexer.DefaultWorkers
	}
	if o.LiveFormat == "" {
		o.LiveFormat = links.FormatTS
	}
	return &Pipeline{opts: o}
}

// WithLiveFormat returns a copy of p that writes live URLs in format f.
func (p *Pipeline) WithLiveFormat(f links.Format) *Pipeline {
	cp := *p
	cp.opts.LiveFormat = f
	return &cp
}

func (p *Pipeline) client(conn credentials.Connection) *indexer.Client {
	return indexer.NewClient(conn, indexer.Options{
		Budgets:         p.opts.Budgets,
		HostConcurrency: p.opts.HostConcurrency,
		UserAgent:       p.opts.UserAgent,
		Metrics:         p.opts.Metrics,
		Logger:          p.opts.Logger,
	})
}

// FacetReport is the outcome of one facet fetch.
type FacetReport struct {
	Status  provider.Status `json:"status"`
	Items   int             `json:"items"`
	Skipped int             `json:"skipped,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func report[T any](f indexer.Facet[T]) FacetReport {
	r := FacetReport{Status: f.Status, Items: len(f.Items), Skipped: f.Skipped}
	if f.Err != nil {
		r.Error = f.Err.Error()
	}
	return r
}

// Categories are the sorted, distinct category names per section.
type Categories struct {
	Live   []string `json:"live"`
	Movies []string `json:"movies"`
	Series []string `json:"series"`
}

// Session is one loaded, classified catalog plus the connection it came from.
type Session struct {
	Conn       credentials.Connection
	Catalog    *catalog.Catalog
	Categories Categories
	Facets     map[string]FacetReport
	LoadedAt   time.Time
}

// Load resolves raw and fetches all six facets in parallel. The only error it returns
// is credentials.ErrInvalidInput, before any I/O; upstream failures are recorded in
// Session.Facets and leave the matching section empty.
func (p *Pipeline) Load(ctx context.Context, raw string) (*Session, error) {
	conn, err := credentials.Resolve(raw)
	if err != nil {
		return nil, err
	}
	c := p.client(conn)
	log := p.opts.Logger.With().Str("host", conn.Host).Logger()

	var (
		liveCats, vodCats, seriesCats indexer.Facet[catalog.Category]
		live                          indexer.Facet[catalog.Channel]
		movies                        indexer.Facet[catalog.Movie]
		series                        indexer.Facet[catalog.SeriesRef]
	)
	var g errgroup.Group
	g.Go(func() error { liveCats = c.LiveCategories(ctx); return nil })
	g.Go(func() error { vodCats = c.VODCategories(ctx); return nil })
	g.Go(func() error { seriesCats = c.SeriesCategories(ctx); return nil })
	g.Go(func() error { live = c.LiveStreams(ctx); return nil })
	g.Go(func() error { movies = c.VODStreams(ctx); return nil })
	g.Go(func() error { series = c.Series(ctx); return nil })
	_ = g.Wait()

	s := &Session{
		Conn:    conn,
		Catalog: catalog.New(),
		Facets: map[string]FacetReport{
			indexer.FacetLiveCategories:   report(liveCats),
			indexer.FacetVODCategories:    report(vodCats),
			indexer.FacetSeriesCategories: report(seriesCats),
			indexer.FacetLiveStreams:      report(live),
			indexer.FacetVODStreams:       report(movies),
			indexer.FacetSeries:           report(series),
		},
		LoadedAt: time.Now(),
	}
	cl := classify.Channels(live.Items, classify.NewCategoryMap(liveCats.Items))
	cm := classify.Movies(movies.Items, classify.NewCategoryMap(vodCats.Items))
	cs := classify.Series(series.Items, classify.NewCategoryMap(seriesCats.Items))
	s.Catalog.Replace(cl, cm, cs)
	s.Categories = Categories{
		Live:   classify.ChannelNames(cl),
		Movies: classify.MovieNames(cm),
		Series: classify.SeriesNames(cs),
	}
	log.Info().Int("live", len(cl)).Int("movies", len(cm)).Int("series", len(cs)).Msg("catalog loaded")
	return s, nil
}

// Counts are the entries written per section.
type Counts struct {
	Live     int `json:"live"`
	Movies   int `json:"movies"`
	Episodes int `json:"episodes"`
	Dropped  int `json:"dropped,omitempty"`
	Missed   int `json:"missed,omitempty"` // selected ids not in the catalog
}

// Failures summarizes everything that degraded the document.
type Failures struct {
	Facets       map[string]provider.Status `json:"facets,omitempty"`
	Series       int                        `json:"series"`
	SeriesIDs    []int64                    `json:"series_ids,omitempty"`
	SeriesTotal  int                        `json:"series_total"`
	SkippedItems int                        `json:"skipped_items,omitempty"`
}

// Result is a generated playlist.
type Result struct {
	Document []byte
	Counts   Counts
	Failures Failures
}

// Generate renders selected live channels, all movies and all series episodes.
// The selection is a snapshot and is not read again after this call begins.
func (p *Pipeline) Generate(ctx context.Context, s *Session, sel catalog.Selection, progress func(done, total int)) Result {
	channels := sel.Channels()
	_, movies, series := s.Catalog.Snapshot()

	var lim *rate.Limiter
	if p.opts.DetailRPS > 0 {
		lim = rate.NewLimiter(rate.Limit(p.opts.DetailRPS), 1)
	}
	eps := indexer.FetchEpisodes(ctx, p.client(s.Conn), series, indexer.EpisodeOptions{
		Workers:  p.opts.Workers,
		Limiter:  lim,
		Progress: progress,
		Metrics:  p.opts.Metrics,
		Logger:   p.opts.Logger,
	})

	doc := playlist.Document{
		Live:     playlist.LiveItems(s.Conn, channels, p.opts.LiveFormat),
		Movies:   playlist.MovieItems(s.Conn, movies),
		Episodes: playlist.EpisodeItems(s.Conn, eps.Episodes),
	}
	out, st := p.opts.Writer.Render(doc)
	p.opts.Metrics.PlaylistWritten(st.Live, st.Movies, st.Episodes, st.Dropped)

	res := Result{
		Document: out,
		Counts: Counts{
			Live:     st.Live,
			Movies:   st.Movies,
			Episodes: st.Episodes,
			Dropped:  st.Dropped,
			Missed:   sel.Missed(),
		},
		Failures: Failures{
			Series:       eps.Failed,
			SeriesIDs:    eps.FailedSeries,
			SeriesTotal:  eps.Total,
			SkippedItems: eps.Skipped,
		},
	}
	for name, f := range s.Facets {
		if !f.Status.OK() {
			if res.Failures.Facets == nil {
				res.Failures.Facets = map[string]provider.Status{}
			}
			res.Failures.Facets[name] = f.Status
		}
		res.Failures.SkippedItems += f.Skipped
	}
	p.opts.Logger.Info().
		Int("live", st.Live).Int("movies", st.Movies).Int("episodes", st.Episodes).
		Int("failed_series", eps.Failed).Int("bytes", len(out)).
		Msg("playlist generated")
	return res
}
