// Package server is the HTTP boundary for the load, select and generate flow.
// Sessions hold loaded catalogs; playlist generation runs as a background job
// whose progress and document are polled by id.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/snapetech/panelm3u/internal/metrics"
	"github.com/snapetech/panelm3u/internal/pipeline"
	"github.com/snapetech/panelm3u/internal/session"
)

const maxRequestBody = 1 << 20

// Options configures a Server.
type Options struct {
	Addr     string
	Pipeline *pipeline.Pipeline
	Sessions *session.Store
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
	JobTTL   time.Duration // how long finished jobs stay downloadable; 0 = 30m
}

// Server serves the JSON API, /healthz and /metrics.
type Server struct {
	addr     string
	pipeline *pipeline.Pipeline
	sessions *session.Store
	metrics  *metrics.Metrics
	log      zerolog.Logger
	jobs     *jobs

	// jobs run under base so they outlive the request that started them
	base   context.Context
	cancel context.CancelFunc
}

// New returns a server. Pipeline and Sessions default to fresh instances.
func New(o Options) *Server {
	if o.Pipeline == nil {
		o.Pipeline = pipeline.New(pipeline.Options{Metrics: o.Metrics, Logger: o.Logger})
	}
	if o.Sessions == nil {
		o.Sessions = session.NewStore(0)
	}
	if o.JobTTL <= 0 {
		o.JobTTL = 30 * time.Minute
	}
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:     o.Addr,
		pipeline: o.Pipeline,
		sessions: o.Sessions,
		metrics:  o.Metrics,
		log:      o.Logger,
		jobs:     newJobs(o.JobTTL),
		base:     base,
		cancel:   cancel,
	}
}

// Handler returns the routed, request-logging handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.deleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/categories", s.categories).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/channels", s.channels).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/playlist", s.createPlaylist).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{job}", s.getJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{job}/playlist.m3u", s.jobPlaylist).Methods(http.MethodGet)

	return s.logRequests(r)
}

// Run serves until ctx is done, then shuts down and cancels running jobs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.cancel()

	serverErr := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("server listening")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn().Err(err).Msg("server shutdown")
		}
		<-serverErr
		return nil
	}
}

// Close cancels running jobs.
func (s *Server) Close() { s.cancel() }

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"jobs":     s.jobs.len(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *loggingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lw, r)
		status := lw.status
		if status == 0 {
			status = http.StatusOK
		}
		ev := s.log.Debug()
		if status >= http.StatusInternalServerError {
			ev = s.log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", lw.bytes).
			Dur("dur", time.Since(start).Round(time.Millisecond)).
			Str("remote", r.RemoteAddr).
			Msg("http")
	})
}
