package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/semaphore"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/presentation/graph"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// maxBodySize caps request bodies. The concept itself is capped much lower by the generator.
const maxBodySize = 64 << 10

// Generator is the part of *reel.Generator the facade drives.
type Generator interface {
	NewRequest(concept, language string) (reel.Request, error)
	Execute(ctx context.Context, req reel.Request) domain.RunRecord
	Submit(ctx context.Context, req reel.Request, onDone func(domain.RunRecord)) error
	Lookup(ctx context.Context, id string) (domain.RunRecord, error)
	Store() ports.RunStore
	Graph() *domain.Graph
}

var _ Generator = (*reel.Generator)(nil)

// GenerateRequest is the body of POST /generate and POST /runs.
type GenerateRequest struct {
	Concept  string `json:"concept"`
	Language string `json:"language,omitempty"`
}

// AcceptedResponse is returned by POST /runs.
type AcceptedResponse struct {
	RunID  string        `json:"run_id"`
	Status domain.Status `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the generator over HTTP.
type Server struct {
	gen     Generator
	logger  *slog.Logger
	slots   *semaphore.Weighted
	origins []string
	metrics http.Handler
	static  string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxConcurrentRuns bounds how many runs execute at once across both endpoints.
func WithMaxConcurrentRuns(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithCORSOrigins sets the allowed origins. "*" allows any origin.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStaticDir serves published videos from dir under /static/videos/.
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.static = dir
	}
}

// NewServer creates the facade. Without WithMaxConcurrentRuns a single run executes at a time.
func NewServer(gen Generator, opts ...Option) *Server {
	s := &Server{
		gen:     gen,
		slots:   semaphore.NewWeighted(1),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return s
}

// NewHandler is shorthand for NewServer(gen, opts...).Handler().
func NewHandler(gen Generator, opts ...Option) http.Handler {
	return NewServer(gen, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/generate", s.Generate)
	r.Post("/runs", s.SubmitRun)
	r.Get("/runs", s.ListRuns)
	r.Get("/runs/{id}", s.GetRun)
	r.Get("/graph", s.GetGraph)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.static != "" {
		r.Handle("/static/videos/*", http.StripPrefix("/static/videos/", http.FileServer(http.Dir(s.static))))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

// Generate handles POST /generate. It blocks until the run finishes.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if err := s.slots.Acquire(r.Context(), 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, "request canceled while waiting for a free run slot")
		return
	}
	defer s.slots.Release(1)

	rec := s.gen.Execute(r.Context(), req)
	s.logger.InfoContext(r.Context(), "generate finished",
		"run_id", rec.ID, "status", rec.Status, "category", rec.Category, "steps", rec.Steps)

	writeJSON(w, statusFor(rec), rec.Result())
}

// SubmitRun handles POST /runs. The run continues after the response is sent.
func (s *Server) SubmitRun(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if !s.slots.TryAcquire(1) {
		writeError(w, http.StatusTooManyRequests, "too many runs in progress")
		return
	}
	err := s.gen.Submit(r.Context(), req, func(rec domain.RunRecord) {
		s.slots.Release(1)
		s.logger.Info("run finished", "run_id", rec.ID, "status", rec.Status, "category", rec.Category)
	})
	if err != nil {
		s.slots.Release(1)
		s.logger.ErrorContext(r.Context(), "submit failed", "run_id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not record the run")
		return
	}

	w.Header().Set("Location", "/runs/"+req.ID)
	writeJSON(w, http.StatusAccepted, AcceptedResponse{RunID: req.ID, Status: domain.StatusRunning})
}

// ListRuns handles GET /runs?limit=N.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	records, err := s.gen.Store().List(r.Context(), limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if records == nil {
		records = []domain.RunRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.gen.Lookup(r.Context(), id)
	if errors.Is(err, domain.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %q not found", id))
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "lookup failed", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load the run")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetGraph handles GET /graph and returns a Mermaid flowchart.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(s.gen.Graph(), nil))
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "reel-http",
		"version": strings.TrimSpace(reel.Version),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (reel.Request, bool) {
	var body GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&body); err != nil {
		s.logger.WarnContext(r.Context(), "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return reel.Request{}, false
	}
	req, err := s.gen.NewRequest(body.Concept, body.Language)
	if err != nil {
		s.logger.WarnContext(r.Context(), "input rejected", "error", err, "size", len(body.Concept))
		if errors.Is(err, domain.ErrEmptyConcept) {
			writeError(w, http.StatusBadRequest, `missing "concept"`)
		} else {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid concept: %v", err))
		}
		return reel.Request{}, false
	}
	return req, true
}

// statusFor maps a finished run onto an HTTP status. The body always carries the result.
func statusFor(rec domain.RunRecord) int {
	switch {
	case rec.Status == domain.StatusSuccess:
		return http.StatusOK
	case rec.Category == domain.CategoryCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
