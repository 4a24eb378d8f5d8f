package local

import (
	"github.com/felixgeelhaar/primer/internal/progress"
)

// ErrNotFound is returned when a record is not found. It is the progress
// package's not-found error so callers can match either.
var ErrNotFound = progress.ErrNotFound
