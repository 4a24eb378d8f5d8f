package progress

import (
	"context"

	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/google/uuid"
)

// ProgressService defines the learner progress operations used by the
// daemon handlers and the MCP tools
type ProgressService interface {
	// Submit scores responses for a lesson and records the attempt
	Submit(ctx context.Context, learnerID, lessonKey string, responses domain.Responses) (*Attempt, error)

	// Progress returns the best attempt per lesson for a learner
	Progress(ctx context.Context, learnerID string) (*Progress, error)

	// Attempt returns a single attempt
	Attempt(ctx context.Context, id uuid.UUID) (*Attempt, error)

	// History returns a learner's attempts for one lesson, oldest first
	History(ctx context.Context, learnerID, lessonKey string) ([]*Attempt, error)

	// Learners returns the ids of every learner with at least one attempt
	Learners(ctx context.Context) ([]string, error)
}

// Ensure Service implements ProgressService
var _ ProgressService = (*Service)(nil)

// AttemptStore defines the persistence interface for attempts.
// The SQLite, JSON file and PostgreSQL stores implement this.
type AttemptStore interface {
	SaveAttempt(ctx context.Context, attempt *Attempt) error
	GetAttempt(ctx context.Context, id uuid.UUID) (*Attempt, error)
	// ListAttempts returns a learner's attempts ordered by CreatedAt
	ListAttempts(ctx context.Context, learnerID string) ([]*Attempt, error)
	ListLearners(ctx context.Context) ([]string, error)
}
