// Package api exposes the HTTP interface for the scraper service: health
// probes, Prometheus metrics, posting views and manual run triggers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AnonArchitect/career-crawler/internal/metrics"
	"github.com/AnonArchitect/career-crawler/internal/scraper"
)

// RunTrigger starts one scrape cycle; POST /v1/runs calls it synchronously.
type RunTrigger interface {
	Run(ctx context.Context) (scraper.RunSummary, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the posting store and the pipeline.
type Server struct {
	router chi.Router
	store  scraper.PostingStore
	pinger Pinger
	runner RunTrigger
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store scraper.PostingStore, pinger Pinger, runner RunTrigger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		pinger: pinger,
		runner: runner,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(5 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/postings", s.listPostings)
		r.Post("/postings/{posting_id}/status", s.updateStatus)
		r.Post("/runs", s.triggerRun)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listPostings(w http.ResponseWriter, r *http.Request) {
	view := scraper.StatusView(r.URL.Query().Get("view"))
	if view == "" {
		view = scraper.ViewActive
	}

	postings, err := s.store.ListByStatus(r.Context(), view)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := make([]postingResponse, 0, len(postings))
	for _, p := range postings {
		out = append(out, toPostingResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": view, "postings": out})
}

type statusRequest struct {
	Applied *bool `json:"applied"`
	Ignored *bool `json:"ignored"`
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "posting_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid posting id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Applied == nil && req.Ignored == nil {
		writeError(w, http.StatusBadRequest, "applied or ignored must be set")
		return
	}

	if err := s.store.UpdateStatus(r.Context(), id, req.Applied, req.Ignored); err != nil {
		if errors.Is(err, scraper.ErrNotFound) {
			writeError(w, http.StatusNotFound, "posting not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posting_id": id})
}

func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}

	summary, err := s.runner.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runResponse{
		RunID:            summary.RunID,
		TargetsProcessed: summary.TargetsProcessed,
		TargetsFailed:    summary.TargetsFailed,
		Candidates:       summary.Candidates,
		NewPostings:      summary.NewPostings,
		AlertsSent:       summary.AlertsSent,
	})
}

type runResponse struct {
	RunID            string `json:"run_id"`
	TargetsProcessed int    `json:"targets_processed"`
	TargetsFailed    int    `json:"targets_failed"`
	Candidates       int    `json:"candidates"`
	NewPostings      int    `json:"new_postings"`
	AlertsSent       int    `json:"alerts_sent"`
}

type postingResponse struct {
	ID          int64      `json:"id"`
	Company     string     `json:"company"`
	Title       string     `json:"title"`
	Location    string     `json:"location"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`
	Notified    bool       `json:"notified"`
	Applied     bool       `json:"applied"`
	Ignored     bool       `json:"ignored"`
}

func toPostingResponse(p scraper.Posting) postingResponse {
	return postingResponse{
		ID:          p.ID,
		Company:     p.Company,
		Title:       p.Title,
		Location:    p.Location,
		Description: p.Description,
		URL:         p.URL,
		PostedAt:    p.PostedAt,
		ScrapedAt:   p.ScrapedAt,
		Notified:    p.Notified,
		Applied:     p.Applied,
		Ignored:     p.Ignored,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
