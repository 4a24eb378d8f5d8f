package progress

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/felixgeelhaar/primer/internal/lesson"
	"github.com/google/uuid"
)

// memStore is an in-memory AttemptStore
type memStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*Attempt
	failSave bool
}

func newMemStore() *memStore {
	return &memStore{attempts: make(map[uuid.UUID]*Attempt)}
}

func (m *memStore) SaveAttempt(_ context.Context, a *Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	m.attempts[a.ID] = a
	return nil
}

func (m *memStore) GetAttempt(_ context.Context, id uuid.UUID) (*Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *memStore) ListAttempts(_ context.Context, learnerID string) ([]*Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Attempt
	for _, a := range m.attempts {
		if a.LearnerID == learnerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListLearners(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, a := range m.attempts {
		if !seen[a.LearnerID] {
			seen[a.LearnerID] = true
			out = append(out, a.LearnerID)
		}
	}
	sort.Strings(out)
	return out, nil
}

const quizYAML = `name: Quiz
intro: ""
steps:
  - id: a
    type: text
    points: 5
    text: Read this.
  - id: b
    type: mcq
    points: 20
    answers: [x, y, z]
    correctAnswer: y
    text: Pick one.
`

const readingYAML = `name: Reading
intro: ""
steps:
  - id: only
    type: text
    points: 10
    text: Just read.
`

func setupService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	catalog, err := lesson.Build(fstest.MapFS{
		"1-basics/1-quiz.yaml":    {Data: []byte(quizYAML)},
		"1-basics/2-reading.yaml": {Data: []byte(readingYAML)},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	store := newMemStore()
	return NewService(store, catalog), store
}

func TestService_Submit(t *testing.T) {
	service, store := setupService(t)
	ctx := context.Background()

	attempt, err := service.Submit(ctx, "ada", "1-basics/1-quiz", domain.Responses{"a": "", "b": "y"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if attempt.ID == uuid.Nil {
		t.Error("attempt ID should be set")
	}
	if attempt.Result.Total != 25 || attempt.Result.Max != 25 {
		t.Errorf("Result = %d/%d, want 25/25", attempt.Result.Total, attempt.Result.Max)
	}
	if _, ok := store.attempts[attempt.ID]; !ok {
		t.Error("attempt was not saved")
	}
}

func TestService_Submit_CopiesResponses(t *testing.T) {
	service, _ := setupService(t)
	responses := domain.Responses{"b": "y"}

	attempt, err := service.Submit(context.Background(), "ada", "1-basics/1-quiz", responses)
	if err != nil {
		t.Fatal(err)
	}
	responses["b"] = "x"
	if attempt.Responses["b"] != "y" {
		t.Error("attempt should not share the caller's responses map")
	}
}

func TestService_Submit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		learner string
		key     string
		wantErr error
	}{
		{"empty learner", "", "1-basics/1-quiz", domain.ErrInvalidLearnerID},
		{"learner with slash", "../etc", "1-basics/1-quiz", domain.ErrInvalidLearnerID},
		{"learner too long", strings.Repeat("a", MaxLearnerIDLength+1), "1-basics/1-quiz", domain.ErrInvalidLearnerID},
		{"unknown lesson", "ada", "9-none/1-x", domain.ErrUnknownLesson},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := setupService(t)
			_, err := service.Submit(context.Background(), tt.learner, tt.key, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Submit() error = %v, want %v", err, tt.wantErr)
			}
			if len(store.attempts) != 0 {
				t.Error("failed submit should not save an attempt")
			}
		})
	}
}

func TestService_Submit_StoreFailure(t *testing.T) {
	service, store := setupService(t)
	store.failSave = true

	_, err := service.Submit(context.Background(), "ada", "1-basics/1-quiz", nil)
	if err == nil || !strings.Contains(err.Error(), "save attempt") {
		t.Errorf("Submit() error = %v, want save attempt failure", err)
	}
}

func TestService_Submit_PublishesEvent(t *testing.T) {
	service, _ := setupService(t)
	dispatcher := domain.NewEventDispatcher()
	service.SetDispatcher(dispatcher)

	var events []domain.AttemptScoredEvent
	dispatcher.Subscribe(domain.EventAttemptScored, func(e domain.Event) {
		events = append(events, e.(domain.AttemptScoredEvent))
	})

	attempt, err := service.Submit(context.Background(), "ada", "1-basics/2-reading", domain.Responses{"only": ""})
	if err != nil {
		t.Fatal(err)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].AggregateID() != attempt.ID {
		t.Errorf("AggregateID() = %v, want %v", events[0].AggregateID(), attempt.ID)
	}
	if !events[0].Complete || events[0].Total != 10 {
		t.Errorf("event = %+v", events[0])
	}
}

func TestService_Progress(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	if _, err := service.Submit(ctx, "ada", "1-basics/1-quiz", domain.Responses{"b": "x"}); err != nil {
		t.Fatal(err)
	}
	best, err := service.Submit(ctx, "ada", "1-basics/1-quiz", domain.Responses{"a": "", "b": "y"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := service.Submit(ctx, "ada", "1-basics/1-quiz", domain.Responses{"a": ""}); err != nil {
		t.Fatal(err)
	}
	if _, err := service.Submit(ctx, "grace", "1-basics/2-reading", domain.Responses{"only": ""}); err != nil {
		t.Fatal(err)
	}

	p, err := service.Progress(ctx, "ada")
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}

	if len(p.Lessons) != 2 {
		t.Fatalf("len(Lessons) = %d, want 2", len(p.Lessons))
	}

	quiz := p.Lessons[0]
	if quiz.LessonKey != "1-basics/1-quiz" {
		t.Errorf("Lessons[0] = %s, want authored order", quiz.LessonKey)
	}
	if quiz.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", quiz.Attempts)
	}
	if quiz.Best != 25 || !quiz.Complete {
		t.Errorf("Best = %d Complete = %v, want 25 true", quiz.Best, quiz.Complete)
	}
	if quiz.BestAttemptID == nil || *quiz.BestAttemptID != best.ID {
		t.Errorf("BestAttemptID = %v, want %v", quiz.BestAttemptID, best.ID)
	}

	reading := p.Lessons[1]
	if reading.Attempts != 0 || reading.BestAttemptID != nil {
		t.Errorf("grace's attempt leaked into ada's progress: %+v", reading)
	}

	if p.Earned != 25 || p.Available != 35 {
		t.Errorf("Earned/Available = %d/%d, want 25/35", p.Earned, p.Available)
	}
	if p.Attempted != 1 || p.Completed != 1 {
		t.Errorf("Attempted/Completed = %d/%d, want 1/1", p.Attempted, p.Completed)
	}
}

func TestService_Progress_NoAttempts(t *testing.T) {
	service, _ := setupService(t)

	p, err := service.Progress(context.Background(), "newcomer")
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if p.Earned != 0 || p.Available != 35 || p.Percent() != 0 {
		t.Errorf("Progress = %+v", p)
	}
}

func TestService_History(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	for _, answer := range []string{"x", "y"} {
		if _, err := service.Submit(ctx, "ada", "1-basics/1-quiz", domain.Responses{"b": answer}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := service.Submit(ctx, "ada", "1-basics/2-reading", nil); err != nil {
		t.Fatal(err)
	}

	history, err := service.History(ctx, "ada", "1-basics/1-quiz")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Errorf("len(History()) = %d, want 2", len(history))
	}

	if _, err := service.History(ctx, "ada", "nope"); !errors.Is(err, domain.ErrUnknownLesson) {
		t.Errorf("History(unknown) error = %v, want ErrUnknownLesson", err)
	}
}

func TestService_Learners(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	for _, learner := range []string{"grace", "ada", "grace"} {
		if _, err := service.Submit(ctx, learner, "1-basics/2-reading", nil); err != nil {
			t.Fatal(err)
		}
	}

	learners, err := service.Learners(ctx)
	if err != nil {
		t.Fatalf("Learners() error = %v", err)
	}
	if len(learners) != 2 || learners[0] != "ada" || learners[1] != "grace" {
		t.Errorf("Learners() = %v, want [ada grace]", learners)
	}
}

func TestService_Attempt_NotFound(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.Attempt(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Attempt() error = %v, want ErrNotFound", err)
	}
}

func TestValidateLearnerID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"ada", false},
		{"ada.lovelace_1815-x", false},
		{strings.Repeat("a", MaxLearnerIDLength), false},
		{"", true},
		{".", true},
		{"..", true},
		{"ada lovelace", true},
		{"ada/lovelace", true},
		{"ädä", true},
	}
	for _, tt := range tests {
		err := ValidateLearnerID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateLearnerID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

func TestAttempt_Better(t *testing.T) {
	now := time.Now()
	low := &Attempt{Result: &domain.ScoreResult{Total: 5}, CreatedAt: now}
	high := &Attempt{Result: &domain.ScoreResult{Total: 20}, CreatedAt: now.Add(time.Second)}
	highLater := &Attempt{Result: &domain.ScoreResult{Total: 20}, CreatedAt: now.Add(2 * time.Second)}

	if !high.Better(low) || low.Better(high) {
		t.Error("higher total should win")
	}
	if !high.Better(highLater) || highLater.Better(high) {
		t.Error("earlier attempt should win a tie")
	}
	if !low.Better(nil) {
		t.Error("any attempt beats none")
	}
}

func TestProgress_Percent(t *testing.T) {
	tests := []struct {
		earned, available int
		want              float64
	}{
		{0, 35, 0},
		{25, 35, 25 * 100 / 35.0},
		{35, 35, 100},
		{0, 0, 100},
	}
	for _, tt := range tests {
		p := &Progress{Earned: tt.earned, Available: tt.available}
		if got := p.Percent(); got != tt.want {
			t.Errorf("Percent(%d/%d) = %v, want %v", tt.earned, tt.available, got, tt.want)
		}
		r := &domain.ScoreResult{Total: tt.earned, Max: tt.available}
		if r.Percent() != p.Percent() {
			t.Errorf("ScoreResult.Percent(%d/%d) = %v, Progress.Percent = %v", tt.earned, tt.available, r.Percent(), p.Percent())
		}
	}
}
