package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/primer/internal/config"
	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/felixgeelhaar/primer/internal/lesson"
	"github.com/felixgeelhaar/primer/internal/progress"
)

// maxBodyBytes bounds request bodies on POST routes
const maxBodyBytes = 1 << 20

// Server represents the primer daemon HTTP server
type Server struct {
	cfg       *config.LocalConfig
	server    *http.Server
	router    *http.ServeMux
	limiter   *rateLimiter
	version   string
	startedAt time.Time

	// Services
	catalog  *lesson.Catalog
	progress progress.ProgressService
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config   *config.LocalConfig
	Catalog  *lesson.Catalog
	Progress progress.ProgressService
	Version  string
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, fmt.Errorf("%w: config is required", domain.ErrInvalidInput)
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", domain.ErrInvalidInput)
	}
	if cfg.Progress == nil {
		return nil, fmt.Errorf("%w: progress service is required", domain.ErrInvalidInput)
	}

	s := &Server{
		cfg:       cfg.Config,
		router:    http.NewServeMux(),
		limiter:   newRateLimiter(cfg.Config.Daemon.RateLimit),
		version:   cfg.Version,
		startedAt: time.Now(),
		catalog:   cfg.Catalog,
		progress:  cfg.Progress,
	}
	if s.version == "" {
		s.version = "dev"
	}

	s.setupRoutes()

	handler := recoveryMiddleware(correlationIDMiddleware(loggingMiddleware(s.router)))
	s.server = &http.Server{
		Addr:         cfg.Config.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Content
	s.router.HandleFunc("GET /v1/chapters", s.handleListChapters)
	s.router.HandleFunc("GET /v1/chapters/{chapter}", s.handleGetChapter)
	s.router.HandleFunc("GET /v1/lessons", s.handleListLessons)
	s.router.HandleFunc("GET /v1/lessons/{chapter}/{slug}", s.handleGetLesson)
	s.router.Handle("POST /v1/lessons/{chapter}/{slug}/score", s.limiter.middleware(http.HandlerFunc(s.handleScore)))
	s.router.HandleFunc("GET /v1/schema/lesson", s.handleLessonSchema)

	// Learners
	s.router.HandleFunc("GET /v1/learners", s.handleListLearners)
	s.router.Handle("POST /v1/learners/{learner}/attempts", s.limiter.middleware(http.HandlerFunc(s.handleCreateAttempt)))
	s.router.HandleFunc("GET /v1/learners/{learner}/progress", s.handleGetProgress)
	s.router.HandleFunc("GET /v1/learners/{learner}/lessons/{chapter}/{slug}/attempts", s.handleLessonHistory)
	s.router.HandleFunc("GET /v1/attempts/{id}", s.handleGetAttempt)
}

// Handler returns the root handler including middleware
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	stats := s.catalog.Stats()
	slog.Info("starting primer daemon",
		"addr", s.server.Addr,
		"version", s.version,
		"chapters", stats.ChapterCount,
		"lessons", stats.LessonCount,
		"storage", s.cfg.Storage.Driver,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")

	if err := s.limiter.Close(); err != nil {
		slog.Warn("failed to close rate limiter", "error", err)
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.catalog.Stats()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":         "running",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"chapters":       stats.ChapterCount,
		"lessons":        stats.LessonCount,
		"max_score":      stats.MaxScore,
		"storage":        s.cfg.Storage.Driver,
		"events":         s.cfg.Events.Enabled,
	})
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}

// serviceError maps domain errors onto HTTP status codes
func (s *Server) serviceError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnknownLesson),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, progress.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidLearnerID),
		errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.Error(message, "error", err)
		s.jsonError(w, status, message, nil)
		return
	}
	s.jsonError(w, status, message, err)
}
