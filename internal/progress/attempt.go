package progress

import (
	"fmt"
	"regexp"
	"time"

	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when an attempt does not exist
var ErrNotFound = domain.ErrAttemptNotFound

// MaxLearnerIDLength bounds learner ids so they are safe as file names and
// table keys
const MaxLearnerIDLength = 128

var learnerIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateLearnerID checks that a learner id is non-empty, at most
// MaxLearnerIDLength characters and made of [A-Za-z0-9._-] only
func ValidateLearnerID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: must not be empty", domain.ErrInvalidLearnerID)
	case len(id) > MaxLearnerIDLength:
		return fmt.Errorf("%w: longer than %d characters", domain.ErrInvalidLearnerID, MaxLearnerIDLength)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q is reserved", domain.ErrInvalidLearnerID, id)
	case !learnerIDPattern.MatchString(id):
		return fmt.Errorf("%w: %q may only contain letters, digits, '.', '_' and '-'", domain.ErrInvalidLearnerID, id)
	}
	return nil
}

// Attempt is one scored submission of a learner for a lesson
type Attempt struct {
	ID        uuid.UUID           `json:"id"`
	LearnerID string              `json:"learner_id"`
	LessonKey string              `json:"lesson_key"`
	Responses domain.Responses    `json:"responses"`
	Result    *domain.ScoreResult `json:"result"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewAttempt creates a new attempt. responses is copied.
func NewAttempt(learnerID, lessonKey string, responses domain.Responses, result *domain.ScoreResult) *Attempt {
	cp := make(domain.Responses, len(responses))
	for k, v := range responses {
		cp[k] = v
	}
	return &Attempt{
		ID:        uuid.New(),
		LearnerID: learnerID,
		LessonKey: lessonKey,
		Responses: cp,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
}

// Better reports whether a scored higher than b, or equally but earlier
func (a *Attempt) Better(b *Attempt) bool {
	if b == nil {
		return true
	}
	if a.Result.Total != b.Result.Total {
		return a.Result.Total > b.Result.Total
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
