package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/timisisipi/oposai-backend/internal/model"
)

// AnswerRepository handles durable answer and mark persistence.
// Both writes are last-write-wins upserts on (attempt_id, question_id).
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// UpsertAnswer records the selected label for one question of an open attempt.
func (r *AnswerRepository) UpsertAnswer(ctx context.Context, attemptID, questionID uuid.UUID, label model.OptionLabel) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, selected)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET selected = EXCLUDED.selected, updated_at = NOW()`,
		attemptID, questionID, label,
	)
	return err
}

// UpsertMark flips the marked-for-review flag without touching the selection.
func (r *AnswerRepository) UpsertMark(ctx context.Context, attemptID, questionID uuid.UUID, marked bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, marked)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET marked = EXCLUDED.marked, updated_at = NOW()`,
		attemptID, questionID, marked,
	)
	return err
}
