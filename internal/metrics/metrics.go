// Package metrics exposes Prometheus collectors for panel fetches, the episode
// fan-out and playlist generation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is one set of collectors bound to its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	skipped       *prometheus.CounterVec
	fanoutPending prometheus.Gauge
	fanoutFailed  prometheus.Counter
	entries       *prometheus.CounterVec
	dropped       prometheus.Counter
}

// New registers a fresh set of collectors, including Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "panel_m3u",
			Name:      "upstream_fetches_total",
			Help:      "Panel API calls by facet and outcome status.",
		}, []string{"facet", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "panel_m3u",
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Panel API call latency by facet.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"facet"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "panel_m3u",
			Name:      "upstream_items_skipped_total",
			Help:      "Catalog items dropped at decode time because they were malformed.",
		}, []string{"facet"}),
		fanoutPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "panel_m3u",
			Name:      "fanout_pending_series",
			Help:      "Series detail fetches not yet completed.",
		}),
		fanoutFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "panel_m3u",
			Name:      "fanout_failed_series_total",
			Help:      "Series whose episode detail could not be fetched.",
		}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "panel_m3u",
			Name:      "playlist_entries_total",
			Help:      "Entries written to generated playlists by section.",
		}, []string{"section"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "panel_m3u",
			Name:      "playlist_entries_dropped_total",
			Help:      "Entries dropped because their URL could not be written as one line.",
		}),
	}
	reg.MustRegister(
		m.fetches, m.fetchDuration, m.skipped,
		m.fanoutPending, m.fanoutFailed,
		m.entries, m.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveFetch records one panel call. Safe on a nil receiver.
func (m *Metrics) ObserveFetch(facet, status string, elapsed time.Duration, skipped int) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(facet, status).Inc()
	m.fetchDuration.WithLabelValues(facet).Observe(elapsed.Seconds())
	if skipped > 0 {
		m.skipped.WithLabelValues(facet).Add(float64(skipped))
	}
}

// FanoutStarted adds n pending series.
func (m *Metrics) FanoutStarted(n int) {
	if m == nil {
		return
	}
	m.fanoutPending.Add(float64(n))
}

// FanoutDone marks one series complete.
func (m *Metrics) FanoutDone(failed bool) {
	if m == nil {
		return
	}
	m.fanoutPending.Dec()
	if failed {
		m.fanoutFailed.Inc()
	}
}

// PlaylistWritten records section sizes of one generated document.
func (m *Metrics) PlaylistWritten(live, movies, episodes, dropped int) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues("live").Add(float64(live))
	m.entries.WithLabelValues("movies").Add(float64(movies))
	m.entries.WithLabelValues("episodes").Add(float64(episodes))
	m.dropped.Add(float64(dropped))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
