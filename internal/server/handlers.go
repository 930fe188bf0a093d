package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/credentials"
	"github.com/snapetech/panelm3u/internal/links"
	"github.com/snapetech/panelm3u/internal/pipeline"
)

type createSessionRequest struct {
	Connection string `json:"connection"`
	Refresh    bool   `json:"refresh"` // reload even if this connection is cached
}

type sessionCounts struct {
	Live   int `json:"live"`
	Movies int `json:"movies"`
	Series int `json:"series"`
}

type sessionView struct {
	ID         string                          `json:"id"`
	Host       string                          `json:"host"`
	Counts     sessionCounts                   `json:"counts"`
	Categories pipeline.Categories             `json:"categories"`
	Facets     map[string]pipeline.FacetReport `json:"facets"`
	LoadedAt   time.Time                       `json:"loaded_at"`
}

func viewOf(id string, sess *pipeline.Session) sessionView {
	live, movies, series := sess.Catalog.Counts()
	return sessionView{
		ID:         id,
		Host:       sess.Conn.Host,
		Counts:     sessionCounts{Live: live, Movies: movies, Series: series},
		Categories: sess.Categories,
		Facets:     sess.Facets,
		LoadedAt:   sess.LoadedAt,
	}
}

// POST /api/sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	conn, err := credentials.Resolve(req.Connection)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Refresh {
		if id, sess, ok := s.sessions.ForConnection(conn); ok {
			respondJSON(w, http.StatusOK, viewOf(id, sess))
			return
		}
	}
	// The load is not tied to the request: a client that hangs up must not leave a
	// session of cancelled facets in the cache.
	sess, err := s.pipeline.Load(s.base, req.Connection)
	if err != nil {
		if errors.Is(err, credentials.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.base.Err(); err != nil {
		respondError(w, http.StatusServiceUnavailable, "server shutting down")
		return
	}
	id := s.sessions.Put(sess)
	s.log.Info().Str("session", id).Str("host", sess.Conn.Host).Msg("session created")
	respondJSON(w, http.StatusCreated, viewOf(id, sess))
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *pipeline.Session, bool) {
	id := mux.Vars(r)["id"]
	sess, ok := s.sessions.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return "", nil, false
	}
	return id, sess, true
}

// GET /api/sessions/{id}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, viewOf(id, sess))
}

// DELETE /api/sessions/{id}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/sessions/{id}/categories
func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Categories)
}

type channelRow struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Icon         string `json:"icon,omitempty"`
	EPGChannelID string `json:"epg_channel_id,omitempty"`
}

// GET /api/sessions/{id}/channels?category=&q=
// category matches exactly; q is a case-insensitive fuzzy match on the name.
func (s *Server) channels(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	category := r.URL.Query().Get("category")
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	live := sess.Catalog.SnapshotLive()
	rows := make([]channelRow, 0, len(live))
	for _, ch := range live {
		if category != "" && ch.Category != category {
			continue
		}
		if q != "" && !fuzzy.MatchFold(q, ch.Name) {
			continue
		}
		rows = append(rows, channelRow{
			ID:           ch.StreamID,
			Name:         ch.Name,
			Category:     ch.Category,
			Icon:         ch.Icon,
			EPGChannelID: ch.EPGChannelID,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"channels": rows, "total": len(live)})
}

type playlistRequest struct {
	StreamIDs  []int64  `json:"stream_ids"`
	Categories []string `json:"categories"` // every channel in these live categories
	Format     string   `json:"format"`     // "ts" | "m3u8" | "hls", any case; empty = server default
}

func validFormat(f string) bool {
	return f == "" || links.KnownFormat(f)
}

// POST /api/sessions/{id}/playlist
func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req playlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validFormat(req.Format) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", req.Format))
		return
	}

	available := sess.Catalog.SnapshotLive()
	ids := append([]int64(nil), req.StreamIDs...)
	if len(req.Categories) > 0 {
		ids = append(ids, catalog.IDsInCategories(available, req.Categories...)...)
	}
	sel := catalog.NewSelection(available, ids)

	p := s.pipeline
	if req.Format != "" {
		p = p.WithLiveFormat(links.ParseFormat(req.Format))
	}
	job := newJob(id, pipeline.FileName(sess.Conn))
	s.jobs.add(job)
	log := s.log.With().Str("job", job.ID).Str("session", id).Logger()
	log.Info().Int("channels", sel.Len()).Int("missed", sel.Missed()).Msg("playlist job started")

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Msg("playlist job panicked")
				job.fail(fmt.Sprint(rec))
			}
		}()
		res := p.Generate(s.base, sess, sel, job.progress)
		if err := s.base.Err(); err != nil {
			job.fail(err.Error())
			return
		}
		job.finish(res)
		log.Info().Int("entries", res.Counts.Live+res.Counts.Movies+res.Counts.Episodes).
			Dur("elapsed", time.Since(job.Started)).Msg("playlist job done")
	}()

	w.Header().Set("Location", "/api/jobs/"+job.ID)
	respondJSON(w, http.StatusAccepted, map[string]string{"job": job.ID})
}

// GET /api/jobs/{job}
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.get(mux.Vars(r)["job"])
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.Status())
}

// GET /api/jobs/{job}/playlist.m3u
func (s *Server) jobPlaylist(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.get(mux.Vars(r)["job"])
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	doc, ok := job.Document()
	if !ok {
		respondError(w, http.StatusConflict, "job is "+string(job.Status().State))
		return
	}
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
