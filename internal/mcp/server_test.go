package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/felixgeelhaar/primer/internal/lesson"
	"github.com/felixgeelhaar/primer/internal/progress"
	"github.com/felixgeelhaar/primer/internal/storage/local"
)

const quizLesson = `name: Getting Started
intro: Welcome.
steps:
  - id: setup
    type: mcq
    points: 20
    text: What does the dev server print?
    answers: ["404", "Hello Next.js"]
    correctAnswer: Hello Next.js
  - id: done
    type: text
    points: 5
    text: Done.
`

const exportLesson = `name: Export
intro: ""
steps:
  - id: read
    type: text
    points: 10
    text: Static export.
`

// setupTestServer creates a test MCP server over a small catalog
func setupTestServer(t *testing.T, withProgress bool) *Server {
	t.Helper()

	catalog, err := lesson.Build(fstest.MapFS{
		"1-basics/1-getting-started.yaml": {Data: []byte(quizLesson)},
		"2-excel/1-export.yaml":           {Data: []byte(exportLesson)},
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}

	cfg := Config{Catalog: catalog, Version: "test"}
	if withProgress {
		store, err := local.NewAttemptStore(t.TempDir())
		if err != nil {
			t.Fatalf("create store: %v", err)
		}
		cfg.Progress = progress.NewService(store, catalog)
	}
	return NewServer(cfg)
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t, false)

	if server.mcpServer == nil {
		t.Fatal("expected non-nil MCP server")
	}
	if server.GetMCPServer() != server.mcpServer {
		t.Error("GetMCPServer() should return the underlying server")
	}
}

func TestHandleListLessons(t *testing.T) {
	server := setupTestServer(t, false)
	ctx := context.Background()

	out, err := server.handleListLessons(ctx, ListLessonsInput{})
	if err != nil {
		t.Fatalf("handleListLessons() error = %v", err)
	}
	if out.Count != 2 || out.MaxScore != 35 {
		t.Errorf("count/max = %d/%d, want 2/35", out.Count, out.MaxScore)
	}
	if out.Lessons[0].Key != "1-basics/1-getting-started" || out.Lessons[1].Key != "2-excel/1-export" {
		t.Errorf("lessons out of order: %+v", out.Lessons)
	}

	out, err = server.handleListLessons(ctx, ListLessonsInput{Chapter: "2-excel"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || out.Lessons[0].Name != "Export" {
		t.Errorf("chapter filter = %+v", out.Lessons)
	}

	if _, err := server.handleListLessons(ctx, ListLessonsInput{Chapter: "9-none"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown chapter error = %v, want ErrNotFound", err)
	}
}

func TestHandleGetLesson(t *testing.T) {
	server := setupTestServer(t, false)

	out, err := server.handleGetLesson(context.Background(), GetLessonInput{Key: "1-basics/1-getting-started"})
	if err != nil {
		t.Fatalf("handleGetLesson() error = %v", err)
	}
	if out.Lesson.Name != "Getting Started" || len(out.Lesson.Steps) != 2 {
		t.Errorf("lesson = %+v", out.Lesson)
	}
	if out.MaxScore != 25 || out.Next != "2-excel/1-export" || out.Previous != "" {
		t.Errorf("max/next/previous = %d/%q/%q", out.MaxScore, out.Next, out.Previous)
	}

	_, err = server.handleGetLesson(context.Background(), GetLessonInput{Key: "1-basics/9-none"})
	if !errors.Is(err, domain.ErrUnknownLesson) {
		t.Errorf("unknown lesson error = %v, want ErrUnknownLesson", err)
	}
}

func TestHandleScore(t *testing.T) {
	tests := []struct {
		name      string
		responses map[string]string
		wantTotal int
		wantMark  string
	}{
		{"all correct", map[string]string{"setup": "Hello Next.js", "done": ""}, 25, "setup ✓"},
		{"wrong answer", map[string]string{"setup": "404", "done": ""}, 5, "setup ✗"},
		{"case sensitive", map[string]string{"setup": "hello next.js"}, 0, "done ✗"},
		{"nothing submitted", nil, 0, "0/25"},
	}

	server := setupTestServer(t, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := server.handleScore(context.Background(), ScoreInput{
				Key:       "1-basics/1-getting-started",
				Responses: tt.responses,
			})
			if err != nil {
				t.Fatalf("handleScore() error = %v", err)
			}
			if out.Total != tt.wantTotal || out.Max != 25 {
				t.Errorf("score = %d/%d, want %d/25", out.Total, out.Max, tt.wantTotal)
			}
			if !strings.Contains(out.Summary, tt.wantMark) {
				t.Errorf("Summary = %q, want to contain %q", out.Summary, tt.wantMark)
			}
		})
	}
}

func TestHandleScore_ZeroPointSteps(t *testing.T) {
	catalog, err := lesson.Build(fstest.MapFS{
		"1-basics/1-warmup.yaml": {Data: []byte(`name: Warmup
intro: ""
steps:
  - id: read
    type: text
    points: 0
    text: Skim this.
  - id: guess
    type: mcq
    points: 0
    text: Any idea?
    answers: ["yes", "no"]
    correctAnswer: "yes"
`)},
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	server := NewServer(Config{Catalog: catalog, Version: "test"})

	tests := []struct {
		name      string
		responses map[string]string
		want      string
	}{
		{"nothing submitted", nil, "0/0 | read ✗ | guess ✗"},
		{"wrong choice", map[string]string{"read": "", "guess": "no"}, "0/0 | read ✓ | guess ✗"},
		{"correct choice", map[string]string{"guess": "yes"}, "0/0 | read ✗ | guess ✓"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := server.handleScore(context.Background(), ScoreInput{
				Key:       "1-basics/1-warmup",
				Responses: tt.responses,
			})
			if err != nil {
				t.Fatalf("handleScore() error = %v", err)
			}
			if out.Summary != tt.want {
				t.Errorf("Summary = %q, want %q", out.Summary, tt.want)
			}
		})
	}
}

func TestHandleScore_UnknownLesson(t *testing.T) {
	server := setupTestServer(t, false)

	_, err := server.handleScore(context.Background(), ScoreInput{Key: "nope"})
	if !errors.Is(err, domain.ErrUnknownLesson) {
		t.Errorf("error = %v, want ErrUnknownLesson", err)
	}
}

func TestHandleSubmitAttemptAndProgress(t *testing.T) {
	server := setupTestServer(t, true)
	ctx := context.Background()

	out, err := server.handleSubmitAttempt(ctx, SubmitAttemptInput{
		LearnerID: "ada",
		Key:       "2-excel/1-export",
		Responses: map[string]string{"read": ""},
	})
	if err != nil {
		t.Fatalf("handleSubmitAttempt() error = %v", err)
	}
	if out.AttemptID == "" || out.Score.Total != 10 {
		t.Errorf("attempt = %+v", out)
	}

	p, err := server.handleProgress(ctx, ProgressInput{LearnerID: "ada"})
	if err != nil {
		t.Fatalf("handleProgress() error = %v", err)
	}
	if p.Earned != 10 || p.Available != 35 || p.Completed != 1 {
		t.Errorf("progress = %+v", p)
	}
	if !strings.HasPrefix(p.Summary, "10/35 points, 1 of 2 lessons complete") {
		t.Errorf("Summary = %q", p.Summary)
	}

	_, err = server.handleSubmitAttempt(ctx, SubmitAttemptInput{LearnerID: "../x", Key: "2-excel/1-export"})
	if !errors.Is(err, domain.ErrInvalidLearnerID) {
		t.Errorf("invalid learner error = %v, want ErrInvalidLearnerID", err)
	}
}
