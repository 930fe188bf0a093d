package indexer

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/metrics"
	"github.com/snapetech/panelm3u/internal/provider"
)

// DefaultWorkers is the fan-out pool width.
const DefaultWorkers = 10

// EpisodeSource is what the fan-out needs from a panel client.
type EpisodeSource interface {
	SeriesInfo(ctx context.Context, ref catalog.SeriesRef) Facet[catalog.Episode]
}

// EpisodeOptions tunes FetchEpisodes. Zero values are usable.
type EpisodeOptions struct {
	Workers  int           // pool width; <= 0 means DefaultWorkers
	Limiter  *rate.Limiter // paces task starts when set
	Progress func(done, total int)
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// EpisodeResult is the union of every successfully fetched series' episodes.
// Episodes are in completion order.
type EpisodeResult struct {
	Episodes     []catalog.Episode
	Total        int
	Failed       int
	FailedSeries []int64
	Skipped      int // malformed episode items dropped inside otherwise good series
}

// Succeeded is the number of series that returned an episode list (possibly empty).
func (r EpisodeResult) Succeeded() int { return r.Total - r.Failed }

type seriesOutcome struct {
	ref   catalog.SeriesRef
	facet Facet[catalog.Episode]
}

// FetchEpisodes runs one SeriesInfo call per series on a fixed-size pool. Each task
// reports on a channel and a single aggregator owns the result, so nothing else is
// shared between workers. A failed series contributes nothing and never stops its
// siblings; the result is always returned.
func FetchEpisodes(ctx context.Context, src EpisodeSource, series []catalog.SeriesRef, opts EpisodeOptions) EpisodeResult {
	total := len(series)
	if total == 0 {
		return EpisodeResult{Episodes: []catalog.Episode{}}
	}
	width := opts.Workers
	if width <= 0 {
		width = DefaultWorkers
	}
	opts.Metrics.FanoutStarted(total)

	outcomes := make(chan seriesOutcome, width)
	result := make(chan EpisodeResult, 1)
	go aggregate(outcomes, total, opts, result)

	pool, err := ants.NewPool(width)
	if err != nil {
		// Only reachable with an invalid size; run serially rather than fail the run.
		opts.Logger.Warn().Err(err).Msg("episode pool unavailable, fetching serially")
		for _, ref := range series {
			outcomes <- fetchOne(ctx, src, ref)
		}
		return <-result
	}
	defer pool.Release()

	for _, ref := range series {
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				outcomes <- seriesOutcome{ref: ref, facet: failed[catalog.Episode](fmt.Errorf("series %d: %w", ref.SeriesID, err))}
				continue
			}
		}
		if err := pool.Submit(func() { outcomes <- fetchOne(ctx, src, ref) }); err != nil {
			outcomes <- seriesOutcome{ref: ref, facet: failed[catalog.Episode](fmt.Errorf("series %d: submit: %w", ref.SeriesID, err))}
		}
	}
	return <-result
}

// fetchOne never panics past its boundary: a panicking source counts as a failed series.
func fetchOne(ctx context.Context, src EpisodeSource, ref catalog.SeriesRef) (out seriesOutcome) {
	out.ref = ref
	defer func() {
		if p := recover(); p != nil {
			out.facet = Facet[catalog.Episode]{Status: provider.StatusMalformed, Err: fmt.Errorf("series %d: panic: %v", ref.SeriesID, p)}
		}
	}()
	out.facet = src.SeriesInfo(ctx, ref)
	return out
}

func aggregate(in <-chan seriesOutcome, total int, opts EpisodeOptions, out chan<- EpisodeResult) {
	res := EpisodeResult{Episodes: []catalog.Episode{}, Total: total}
	for done := 1; done <= total; done++ {
		o := <-in
		ok := o.facet.OK()
		if ok {
			res.Episodes = append(res.Episodes, o.facet.Items...)
			res.Skipped += o.facet.Skipped
		} else {
			res.Failed++
			res.FailedSeries = append(res.FailedSeries, o.ref.SeriesID)
			opts.Logger.Debug().Int64("series_id", o.ref.SeriesID).Str("status", string(o.facet.Status)).Err(o.facet.Err).Msg("series detail failed")
		}
		opts.Metrics.FanoutDone(!ok)
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
	}
	opts.Logger.Info().Int("series", total).Int("failed", res.Failed).Int("episodes", len(res.Episodes)).Msg("episode fan-out complete")
	out <- res
}
