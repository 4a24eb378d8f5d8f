package local

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/primer/internal/progress"
	"github.com/google/uuid"
)

const (
	attemptsCollection = "attempts"
	learnersCollection = "learners"
)

// learnerEntry indexes one attempt under its learner
type learnerEntry struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	LessonKey string    `json:"lesson_key"`
	CreatedAt time.Time `json:"created_at"`
}

// AttemptStore keeps attempts as JSON files:
//
//	attempts/<id>.json
//	learners/<learner>/<id>.json (index entry)
type AttemptStore struct {
	store *Store
}

// NewAttemptStore creates a JSON file attempt store rooted at basePath
func NewAttemptStore(basePath string) (*AttemptStore, error) {
	store, err := NewStore(basePath)
	if err != nil {
		return nil, err
	}
	return &AttemptStore{store: store}, nil
}

// SaveAttempt persists an attempt and its learner index entry
func (s *AttemptStore) SaveAttempt(_ context.Context, a *progress.Attempt) error {
	if err := progress.ValidateLearnerID(a.LearnerID); err != nil {
		return err
	}

	id := a.ID.String()
	if err := s.store.Save(attemptsCollection, id, a); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}

	entry := learnerEntry{AttemptID: a.ID, LessonKey: a.LessonKey, CreatedAt: a.CreatedAt}
	if err := s.store.Save(learnersCollection+"/"+a.LearnerID, id, entry); err != nil {
		return fmt.Errorf("index attempt: %w", err)
	}
	return nil
}

// GetAttempt retrieves an attempt by ID
func (s *AttemptStore) GetAttempt(_ context.Context, id uuid.UUID) (*progress.Attempt, error) {
	var a progress.Attempt
	if err := s.store.Load(attemptsCollection, id.String(), &a); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, progress.ErrNotFound
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	return &a, nil
}

// ListAttempts returns all attempts of a learner, oldest first
func (s *AttemptStore) ListAttempts(ctx context.Context, learnerID string) ([]*progress.Attempt, error) {
	if err := progress.ValidateLearnerID(learnerID); err != nil {
		return nil, err
	}

	ids, err := s.store.List(learnersCollection + "/" + learnerID)
	if err != nil {
		return nil, fmt.Errorf("list learner attempts: %w", err)
	}

	attempts := make([]*progress.Attempt, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		a, err := s.GetAttempt(ctx, parsed)
		if errors.Is(err, progress.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}

	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].CreatedAt.Before(attempts[j].CreatedAt)
	})
	return attempts, nil
}

// ListLearners returns the ids of all learners with at least one attempt
func (s *AttemptStore) ListLearners(_ context.Context) ([]string, error) {
	names, err := s.store.Collections(learnersCollection)
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	return names, nil
}

// Ensure AttemptStore implements progress.AttemptStore
var _ progress.AttemptStore = (*AttemptStore)(nil)
