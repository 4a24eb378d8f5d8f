package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/felixgeelhaar/primer/internal/lesson"
	"github.com/google/uuid"
)

// LessonSummary is one row of GET /v1/lessons
type LessonSummary struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Chapter  string `json:"chapter"`
	Steps    int    `json:"steps"`
	MaxScore int    `json:"max_score"`
}

// LessonResponse is the body of GET /v1/lessons/{chapter}/{slug}
type LessonResponse struct {
	Key      string         `json:"key"`
	Chapter  string         `json:"chapter"`
	Lesson   *domain.Lesson `json:"lesson"`
	MaxScore int            `json:"max_score"`
	Previous string         `json:"previous,omitempty"`
	Next     string         `json:"next,omitempty"`
}

// ScoreRequest is the body of POST /v1/lessons/{chapter}/{slug}/score
type ScoreRequest struct {
	Responses domain.Responses `json:"responses"`
}

// AttemptRequest is the body of POST /v1/learners/{learner}/attempts
type AttemptRequest struct {
	Lesson    string           `json:"lesson"`
	Responses domain.Responses `json:"responses"`
}

func summarize(l *domain.Lesson) LessonSummary {
	return LessonSummary{
		Key:      l.Key(),
		Name:     l.Name,
		Chapter:  l.Chapter,
		Steps:    len(l.Steps),
		MaxScore: l.MaxScore(),
	}
}

func lessonKey(r *http.Request) string {
	return r.PathValue("chapter") + "/" + r.PathValue("slug")
}

// readBody reads a bounded request body and checks it against a schema
func readBody(w http.ResponseWriter, r *http.Request, validate func([]byte) error, v any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", domain.ErrInvalidInput, err)
	}
	if err := validate(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// Content handlers

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"chapters": s.catalog.Chapters(),
	})
}

func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("chapter")

	chapter, ok := s.catalog.Chapter(id)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "chapter not found", nil)
		return
	}
	lessons, err := s.catalog.ChapterLessons(id)
	if err != nil {
		s.serviceError(w, "chapter not found", err)
		return
	}

	summaries := make([]LessonSummary, 0, len(lessons))
	for _, l := range lessons {
		summaries = append(summaries, summarize(l))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"chapter": chapter,
		"lessons": summaries,
	})
}

func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	lessons := s.catalog.Lessons()
	summaries := make([]LessonSummary, 0, len(lessons))
	for _, l := range lessons {
		summaries = append(summaries, summarize(l))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"lessons":   summaries,
		"max_score": s.catalog.MaxScore(),
	})
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	key := lessonKey(r)

	l, err := s.catalog.Get(key)
	if err != nil {
		s.serviceError(w, "lesson not found", err)
		return
	}

	resp := LessonResponse{
		Key:      key,
		Chapter:  l.Chapter,
		Lesson:   l,
		MaxScore: l.MaxScore(),
	}
	if prev, _ := s.catalog.Previous(key); prev != nil {
		resp.Previous = prev.Key()
	}
	if next, _ := s.catalog.Next(key); next != nil {
		resp.Next = next.Key()
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	key := lessonKey(r)

	// Unknown lessons are reported before the body is looked at
	if _, err := s.catalog.Get(key); err != nil {
		s.serviceError(w, "lesson not found", err)
		return
	}

	var req ScoreRequest
	if err := readBody(w, r, lesson.ValidateScoreRequest, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid score request", err)
		return
	}

	result, err := s.catalog.Score(key, req.Responses)
	if err != nil {
		s.serviceError(w, "score failed", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleLessonSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, lesson.RecordSchema)
}

// Learner handlers

func (s *Server) handleListLearners(w http.ResponseWriter, r *http.Request) {
	learners, err := s.progress.Learners(r.Context())
	if err != nil {
		s.serviceError(w, "failed to list learners", err)
		return
	}
	if learners == nil {
		learners = []string{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"learners": learners,
	})
}

func (s *Server) handleCreateAttempt(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("learner")

	var req AttemptRequest
	if err := readBody(w, r, lesson.ValidateAttemptRequest, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid attempt request", err)
		return
	}

	attempt, err := s.progress.Submit(r.Context(), learnerID, req.Lesson, req.Responses)
	if err != nil {
		s.serviceError(w, "failed to record attempt", err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, attempt)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.progress.Progress(r.Context(), r.PathValue("learner"))
	if err != nil {
		s.serviceError(w, "failed to load progress", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"progress": p,
		"percent":  p.Percent(),
	})
}

func (s *Server) handleLessonHistory(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.progress.History(r.Context(), r.PathValue("learner"), lessonKey(r))
	if err != nil {
		s.serviceError(w, "failed to load attempts", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"attempts": attempts,
		"count":    len(attempts),
	})
}

func (s *Server) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid attempt id", err)
		return
	}

	attempt, err := s.progress.Attempt(r.Context(), id)
	if err != nil {
		s.serviceError(w, "attempt not found", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, attempt)
}
