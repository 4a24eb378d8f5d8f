package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/felixgeelhaar/primer/internal/lesson"
	"github.com/google/uuid"
)

// LessonProgress summarizes a learner's attempts on one lesson
type LessonProgress struct {
	LessonKey     string     `json:"lesson_key"`
	Name          string     `json:"name"`
	Chapter       string     `json:"chapter"`
	Attempts      int        `json:"attempts"`
	Best          int        `json:"best"`
	Max           int        `json:"max"`
	Complete      bool       `json:"complete"`
	BestAttemptID *uuid.UUID `json:"best_attempt_id,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// Progress is a learner's standing across the whole content set
type Progress struct {
	LearnerID string           `json:"learner_id"`
	Lessons   []LessonProgress `json:"lessons"`
	Earned    int              `json:"earned"`
	Available int              `json:"available"`
	Attempted int              `json:"attempted"`
	Completed int              `json:"completed"`
}

// Percent returns the earned share of all available points. Like
// domain.ScoreResult.Percent, nothing available counts as 100.
func (p *Progress) Percent() float64 {
	if p.Available == 0 {
		return 100
	}
	return float64(p.Earned) * 100 / float64(p.Available)
}

// Service records scored attempts and reports learner progress
type Service struct {
	store      AttemptStore
	catalog    *lesson.Catalog
	dispatcher *domain.EventDispatcher // Optional: receives AttemptScored events
}

// NewService creates a new progress service
func NewService(store AttemptStore, catalog *lesson.Catalog) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
	}
}

// SetDispatcher sets the dispatcher that receives AttemptScored events
func (s *Service) SetDispatcher(d *domain.EventDispatcher) {
	s.dispatcher = d
}

// Submit scores responses against the lesson, persists the attempt and
// publishes an AttemptScored event
func (s *Service) Submit(ctx context.Context, learnerID, lessonKey string, responses domain.Responses) (*Attempt, error) {
	if err := ValidateLearnerID(learnerID); err != nil {
		return nil, err
	}

	result, err := s.catalog.Score(lessonKey, responses)
	if err != nil {
		return nil, err
	}

	attempt := NewAttempt(learnerID, lessonKey, responses, result)
	if err := s.store.SaveAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}

	slog.Debug("attempt recorded",
		"attempt_id", attempt.ID,
		"learner", learnerID,
		"lesson", lessonKey,
		"total", result.Total,
		"max", result.Max,
	)

	if s.dispatcher != nil {
		s.dispatcher.Publish(domain.NewAttemptScoredEvent(attempt.ID, learnerID, lessonKey, result))
	}

	return attempt, nil
}

// Attempt returns a single attempt by id
func (s *Service) Attempt(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	attempt, err := s.store.GetAttempt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

// History returns a learner's attempts for one lesson, oldest first
func (s *Service) History(ctx context.Context, learnerID, lessonKey string) ([]*Attempt, error) {
	if err := ValidateLearnerID(learnerID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.Get(lessonKey); err != nil {
		return nil, err
	}

	all, err := s.store.ListAttempts(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	var out []*Attempt
	for _, a := range all {
		if a.LessonKey == lessonKey {
			out = append(out, a)
		}
	}
	return out, nil
}

// Learners returns the ids of every learner with a recorded attempt
func (s *Service) Learners(ctx context.Context) ([]string, error) {
	learners, err := s.store.ListLearners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	return learners, nil
}

// Progress returns one entry per lesson in authored order with the best
// attempt, plus totals. Attempts on lessons no longer in the catalog are
// ignored.
func (s *Service) Progress(ctx context.Context, learnerID string) (*Progress, error) {
	if err := ValidateLearnerID(learnerID); err != nil {
		return nil, err
	}

	attempts, err := s.store.ListAttempts(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	best := make(map[string]*Attempt)
	counts := make(map[string]int)
	last := make(map[string]time.Time)
	for _, a := range attempts {
		counts[a.LessonKey]++
		if a.CreatedAt.After(last[a.LessonKey]) {
			last[a.LessonKey] = a.CreatedAt
		}
		if a.Better(best[a.LessonKey]) {
			best[a.LessonKey] = a
		}
	}

	lessons := s.catalog.Lessons()
	p := &Progress{
		LearnerID: learnerID,
		Lessons:   make([]LessonProgress, 0, len(lessons)),
	}

	for _, l := range lessons {
		key := l.Key()
		lp := LessonProgress{
			LessonKey: key,
			Name:      l.Name,
			Chapter:   l.Chapter,
			Attempts:  counts[key],
			Max:       l.MaxScore(),
		}

		if b, ok := best[key]; ok {
			id := b.ID
			at := last[key]
			lp.Best = min(b.Result.Total, lp.Max)
			lp.Complete = lp.Best == lp.Max
			lp.BestAttemptID = &id
			lp.LastAttemptAt = &at
			p.Attempted++
			if lp.Complete {
				p.Completed++
			}
		}

		p.Earned += lp.Best
		p.Available += lp.Max
		p.Lessons = append(p.Lessons, lp)
	}

	return p, nil
}
