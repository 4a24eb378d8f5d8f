package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/felixgeelhaar/primer/internal/lesson"
	"github.com/felixgeelhaar/primer/internal/progress"
)

// Server exposes the lesson catalog and learner progress as MCP tools
type Server struct {
	mcpServer *server.Server
	catalog   *lesson.Catalog
	progress  progress.ProgressService
}

// Config contains configuration for the MCP server
type Config struct {
	Catalog *lesson.Catalog
	// Progress is optional; without it the attempt and progress tools are
	// not registered
	Progress progress.ProgressService
	Version  string
}

// NewServer creates a new MCP server for primer
func NewServer(cfg Config) *Server {
	s := &Server{
		catalog:  cfg.Catalog,
		progress: cfg.Progress,
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "primer",
		Version: version,
	}, server.WithInstructions(`
Primer serves tutorial lessons. Each lesson has a markdown intro and ordered
steps; a step is either a text block or a multiple-choice question.

Scoring: a text step earns its points when its id is present in the
responses. A multiple-choice step earns its points only when the response
equals the correct answer exactly (case and whitespace sensitive). There is
no partial credit.

Available tools:
- primer_list_lessons: List lessons in authored order
- primer_get_lesson: Get the full lesson record
- primer_score: Score responses against a lesson
- primer_submit_attempt: Score and record an attempt for a learner
- primer_progress: Get a learner's best score per lesson
`))

	s.registerTools()

	return s
}

// registerTools registers all primer MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("primer_list_lessons").
		Description("List lessons in authored order, optionally for one chapter").
		Handler(s.handleListLessons)

	s.mcpServer.Tool("primer_get_lesson").
		Description("Get a lesson's intro and steps by key (chapter/lesson)").
		Handler(s.handleGetLesson)

	s.mcpServer.Tool("primer_score").
		Description("Score step responses against a lesson without recording them").
		Handler(s.handleScore)

	if s.progress == nil {
		return
	}

	s.mcpServer.Tool("primer_submit_attempt").
		Description("Score responses and record the attempt for a learner").
		Handler(s.handleSubmitAttempt)

	s.mcpServer.Tool("primer_progress").
		Description("Get a learner's best score per lesson and overall totals").
		Handler(s.handleProgress)
}

// Input/Output types for tools

type ListLessonsInput struct {
	Chapter string `json:"chapter,omitempty" jsonschema:"description=Chapter id such as 1-basics; empty lists every lesson"`
}

type LessonItem struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Chapter  string `json:"chapter"`
	Steps    int    `json:"steps"`
	MaxScore int    `json:"max_score"`
}

type ListLessonsOutput struct {
	Lessons  []LessonItem `json:"lessons"`
	Count    int          `json:"count"`
	MaxScore int          `json:"max_score"`
}

type GetLessonInput struct {
	Key string `json:"key" jsonschema:"description=Lesson key in format chapter/lesson"`
}

type GetLessonOutput struct {
	Key      string              `json:"key"`
	Lesson   domain.LessonRecord `json:"lesson"`
	MaxScore int                 `json:"max_score"`
	Previous string              `json:"previous,omitempty"`
	Next     string              `json:"next,omitempty"`
}

type ScoreInput struct {
	Key       string            `json:"key" jsonschema:"description=Lesson key in format chapter/lesson"`
	Responses map[string]string `json:"responses" jsonschema:"description=Step id -> submitted answer; text steps count when present"`
}

type ScoreOutput struct {
	Total   int                `json:"total"`
	Max     int                `json:"max"`
	Steps   []domain.StepScore `json:"steps"`
	Summary string             `json:"summary"`
}

type SubmitAttemptInput struct {
	LearnerID string            `json:"learner_id" jsonschema:"description=Learner id (letters, digits, dot, dash, underscore)"`
	Key       string            `json:"key" jsonschema:"description=Lesson key in format chapter/lesson"`
	Responses map[string]string `json:"responses" jsonschema:"description=Step id -> submitted answer"`
}

type SubmitAttemptOutput struct {
	AttemptID string      `json:"attempt_id"`
	Score     ScoreOutput `json:"score"`
}

type ProgressInput struct {
	LearnerID string `json:"learner_id" jsonschema:"description=Learner id"`
}

type ProgressOutput struct {
	LearnerID string                    `json:"learner_id"`
	Earned    int                       `json:"earned"`
	Available int                       `json:"available"`
	Completed int                       `json:"completed"`
	Lessons   []progress.LessonProgress `json:"lessons"`
	Summary   string                    `json:"summary"`
}

// Tool handlers

func (s *Server) handleListLessons(ctx context.Context, input ListLessonsInput) (ListLessonsOutput, error) {
	lessons := s.catalog.Lessons()
	if input.Chapter != "" {
		var err error
		lessons, err = s.catalog.ChapterLessons(input.Chapter)
		if err != nil {
			return ListLessonsOutput{}, fmt.Errorf("chapter %q: %w", input.Chapter, err)
		}
	}

	out := ListLessonsOutput{Lessons: make([]LessonItem, 0, len(lessons))}
	for _, l := range lessons {
		out.Lessons = append(out.Lessons, LessonItem{
			Key:      l.Key(),
			Name:     l.Name,
			Chapter:  l.Chapter,
			Steps:    len(l.Steps),
			MaxScore: l.MaxScore(),
		})
		out.MaxScore += l.MaxScore()
	}
	out.Count = len(out.Lessons)

	return out, nil
}

func (s *Server) handleGetLesson(ctx context.Context, input GetLessonInput) (GetLessonOutput, error) {
	l, err := s.catalog.Get(input.Key)
	if err != nil {
		return GetLessonOutput{}, fmt.Errorf("lesson %q: %w", input.Key, err)
	}

	out := GetLessonOutput{
		Key:      l.Key(),
		Lesson:   l.Record(),
		MaxScore: l.MaxScore(),
	}
	if prev, _ := s.catalog.Previous(input.Key); prev != nil {
		out.Previous = prev.Key()
	}
	if next, _ := s.catalog.Next(input.Key); next != nil {
		out.Next = next.Key()
	}
	return out, nil
}

func (s *Server) handleScore(ctx context.Context, input ScoreInput) (ScoreOutput, error) {
	result, err := s.catalog.Score(input.Key, input.Responses)
	if err != nil {
		return ScoreOutput{}, fmt.Errorf("score %q: %w", input.Key, err)
	}
	return scoreOutput(result), nil
}

func (s *Server) handleSubmitAttempt(ctx context.Context, input SubmitAttemptInput) (SubmitAttemptOutput, error) {
	attempt, err := s.progress.Submit(ctx, input.LearnerID, input.Key, input.Responses)
	if err != nil {
		return SubmitAttemptOutput{}, fmt.Errorf("submit attempt: %w", err)
	}
	return SubmitAttemptOutput{
		AttemptID: attempt.ID.String(),
		Score:     scoreOutput(attempt.Result),
	}, nil
}

func (s *Server) handleProgress(ctx context.Context, input ProgressInput) (ProgressOutput, error) {
	p, err := s.progress.Progress(ctx, input.LearnerID)
	if err != nil {
		return ProgressOutput{}, fmt.Errorf("progress: %w", err)
	}
	return ProgressOutput{
		LearnerID: p.LearnerID,
		Earned:    p.Earned,
		Available: p.Available,
		Completed: p.Completed,
		Lessons:   p.Lessons,
		Summary: fmt.Sprintf("%d/%d points, %d of %d lessons complete (%.0f%%)",
			p.Earned, p.Available, p.Completed, len(p.Lessons), p.Percent()),
	}, nil
}

// scoreOutput renders a result with a one-line per-step summary
func scoreOutput(result *domain.ScoreResult) ScoreOutput {
	marks := make([]string, 0, len(result.Steps))
	for _, st := range result.Steps {
		mark := "✗"
		if st.Passed {
			mark = "✓"
		}
		marks = append(marks, fmt.Sprintf("%s %s", st.StepID, mark))
	}
	return ScoreOutput{
		Total:   result.Total,
		Max:     result.Max,
		Steps:   result.Steps,
		Summary: fmt.Sprintf("%d/%d | %s", result.Total, result.Max, strings.Join(marks, " | ")),
	}
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
