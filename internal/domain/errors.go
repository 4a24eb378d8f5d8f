package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by the content
// set, the progress service and the stores to communicate domain-specific
// error conditions.
// -----------------------------------------------------------------------------

// Validation errors. Each matches the issues of the corresponding kind inside
// a *ValidationError via errors.Is.
var (
	ErrSchemaViolation      = errors.New("schema violation")
	ErrDuplicateStepID      = errors.New("duplicate step id")
	ErrInvalidCorrectAnswer = errors.New("invalid correct answer")
	ErrDuplicateLesson      = errors.New("duplicate lesson")
)

// Lesson errors
var (
	ErrUnknownLesson = errors.New("unknown lesson")
)

// Learner errors
var (
	ErrInvalidLearnerID = errors.New("invalid learner id")
	ErrAttemptNotFound  = errors.New("attempt not found")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
