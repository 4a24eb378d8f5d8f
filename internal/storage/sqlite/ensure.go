package sqlite

import (
	"github.com/felixgeelhaar/primer/internal/progress"
)

// Ensure SQLite stores implement the storage interfaces.
var (
	_ progress.AttemptStore = (*AttemptStore)(nil)
)
