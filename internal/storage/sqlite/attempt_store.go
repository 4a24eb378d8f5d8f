package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/felixgeelhaar/primer/internal/progress"
	"github.com/google/uuid"
)

// AttemptStore implements attempt persistence backed by SQLite.
type AttemptStore struct {
	db *DB
}

// NewAttemptStore creates a new SQLite-backed attempt store.
func NewAttemptStore(db *DB) *AttemptStore {
	return &AttemptStore{db: db}
}

// SaveAttempt persists an attempt (insert or update) and touches the learner.
func (s *AttemptStore) SaveAttempt(ctx context.Context, a *progress.Attempt) error {
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}
	result, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	var total, maxScore int
	if a.Result != nil {
		total, maxScore = a.Result.Total, a.Result.Max
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attempts (id, learner_id, lesson_key, responses, result, total, max_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			responses=excluded.responses, result=excluded.result,
			total=excluded.total, max_score=excluded.max_score`,
		a.ID.String(), a.LearnerID, a.LessonKey, string(responses), string(result),
		total, maxScore, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert attempt: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO learners (id, first_seen_at, last_seen_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_seen_at=MAX(learners.last_seen_at, excluded.last_seen_at)`,
		a.LearnerID, a.CreatedAt, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert learner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attempt: %w", err)
	}
	return nil
}

// GetAttempt retrieves an attempt by ID.
func (s *AttemptStore) GetAttempt(ctx context.Context, id uuid.UUID) (*progress.Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, learner_id, lesson_key, responses, result, created_at
		FROM attempts WHERE id = ?`, id.String())
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	return a, err
}

// ListAttempts returns all attempts of a learner, oldest first.
func (s *AttemptStore) ListAttempts(ctx context.Context, learnerID string) ([]*progress.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, learner_id, lesson_key, responses, result, created_at
		FROM attempts WHERE learner_id = ? ORDER BY created_at, rowid`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*progress.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListLearners returns the ids of all learners with at least one attempt.
func (s *AttemptStore) ListLearners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM learners ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan learner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanAttempt scans a single attempt row.
func scanAttempt(row scanner) (*progress.Attempt, error) {
	var (
		a             progress.Attempt
		id            string
		responsesJSON string
		resultJSON    string
	)

	if err := row.Scan(&id, &a.LearnerID, &a.LessonKey, &responsesJSON, &resultJSON, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan attempt: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse attempt id %q: %w", id, err)
	}
	a.ID = parsed

	a.Responses = domain.Responses{}
	if err := json.Unmarshal([]byte(responsesJSON), &a.Responses); err != nil {
		return nil, fmt.Errorf("unmarshal responses: %w", err)
	}
	a.Result = &domain.ScoreResult{}
	if err := json.Unmarshal([]byte(resultJSON), a.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}

	return &a, nil
}
