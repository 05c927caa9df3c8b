package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExplanationRepository handles the durable tutor explanation cache.
type ExplanationRepository struct {
	pool *pgxpool.Pool
}

// NewExplanationRepository creates a new ExplanationRepository.
func NewExplanationRepository(pool *pgxpool.Pool) *ExplanationRepository {
	return &ExplanationRepository{pool: pool}
}

// Upsert writes an explanation idempotently. Repeating the same key
// overwrites the previous text rather than duplicating the entry.
func (r *ExplanationRepository) Upsert(ctx context.Context, attemptID, questionID uuid.UUID, userID *uuid.UUID, text string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tutor_explanations (attempt_id, question_id, user_id, text)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET text = EXCLUDED.text`,
		attemptID, questionID, userID, text,
	)
	return err
}

// Get returns a previously cached explanation, or "" when none exists.
func (r *ExplanationRepository) Get(ctx context.Context, attemptID, questionID uuid.UUID) (string, error) {
	var text string
	err := r.pool.QueryRow(ctx,
		`SELECT text FROM tutor_explanations
		 WHERE attempt_id = $1 AND question_id = $2`, attemptID, questionID,
	).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return text, nil
}
