package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/felixgeelhaar/primer/internal/progress"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// AttemptStore implements progress.AttemptStore using PostgreSQL
type AttemptStore struct {
	pool *pgxpool.Pool
}

// NewAttemptStore creates a new PostgreSQL attempt store
func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

// Migrate creates the attempts table if it does not exist
func (s *AttemptStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SaveAttempt inserts or updates an attempt
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

	query := `
		INSERT INTO attempts (id, learner_id, lesson_key, responses, result, total, max_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			responses = EXCLUDED.responses, result = EXCLUDED.result,
			total = EXCLUDED.total, max_score = EXCLUDED.max_score
	`
	_, err = s.pool.Exec(ctx, query,
		a.ID, a.LearnerID, a.LessonKey, string(responses), string(result), total, maxScore, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert attempt: %w", err)
	}
	return nil
}

// GetAttempt retrieves an attempt by ID
func (s *AttemptStore) GetAttempt(ctx context.Context, id uuid.UUID) (*progress.Attempt, error) {
	query := `
		SELECT id, learner_id, lesson_key, responses, result, created_at
		FROM attempts WHERE id = $1
	`
	a, err := scanAttempt(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAttempts returns all attempts of a learner, oldest first
func (s *AttemptStore) ListAttempts(ctx context.Context, learnerID string) ([]*progress.Attempt, error) {
	query := `
		SELECT id, learner_id, lesson_key, responses, result, created_at
		FROM attempts WHERE learner_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.pool.Query(ctx, query, learnerID)
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

// ListLearners returns the ids of all learners with at least one attempt
func (s *AttemptStore) ListLearners(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT learner_id FROM attempts ORDER BY learner_id`)
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

func scanAttempt(row pgx.Row) (*progress.Attempt, error) {
	var (
		a         progress.Attempt
		responses []byte
		result    []byte
	)
	err := row.Scan(&a.ID, &a.LearnerID, &a.LessonKey, &responses, &result, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan attempt: %w", err)
	}

	a.Responses = domain.Responses{}
	if err := json.Unmarshal(responses, &a.Responses); err != nil {
		return nil, fmt.Errorf("unmarshal responses: %w", err)
	}
	a.Result = &domain.ScoreResult{}
	if err := json.Unmarshal(result, a.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &a, nil
}

// Ensure AttemptStore implements progress.AttemptStore
var _ progress.AttemptStore = (*AttemptStore)(nil)
