package events

import (
	"errors"
	"time"

	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/google/uuid"
)

// ErrNotConnected is returned when publishing without an open channel
var ErrNotConnected = errors.New("not connected to RabbitMQ")

// AttemptMessage is the wire form of a scored attempt on QueueName
type AttemptMessage struct {
	EventID    uuid.UUID `json:"event_id"`
	AttemptID  uuid.UUID `json:"attempt_id"`
	LearnerID  string    `json:"learner_id"`
	LessonKey  string    `json:"lesson_key"`
	Total      int       `json:"total"`
	Max        int       `json:"max"`
	Complete   bool      `json:"complete"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewAttemptMessage converts an AttemptScored domain event
func NewAttemptMessage(e domain.AttemptScoredEvent) *AttemptMessage {
	return &AttemptMessage{
		EventID:    e.EventID(),
		AttemptID:  e.AggregateID(),
		LearnerID:  e.LearnerID,
		LessonKey:  e.LessonKey,
		Total:      e.Total,
		Max:        e.Max,
		Complete:   e.Complete,
		OccurredAt: e.OccurredAt().UTC(),
	}
}
