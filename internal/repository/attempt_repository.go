package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/timisisipi/oposai-backend/internal/model"
)

// AttemptRepository handles attempt lifecycle data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Open creates a new open attempt for the user and seeds its answer sheet:
// one attempt_answers row per sampled question, selection still NULL. The
// seeded sheet is what later gives finish_attempt the full denominator,
// unanswered questions included.
func (r *AttemptRepository) Open(ctx context.Context, userID uuid.UUID, mode model.AttemptMode, questionIDs []uuid.UUID) (*model.Attempt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("open attempt: %w", err)
	}
	defer tx.Rollback(ctx)

	a := &model.Attempt{
		UserID: userID,
		Mode:   mode,
		Status: model.AttemptStatusOpen,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO attempts (user_id, mode, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, started_at`,
		userID, mode, model.AttemptStatusOpen,
	).Scan(&a.ID, &a.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("open attempt: %w", err)
	}

	ids := make([]string, len(questionIDs))
	for i, id := range questionIDs {
		ids[i] = id.String()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id)
		 SELECT $1, unnest($2::uuid[])`,
		a.ID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("seed answer sheet: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("open attempt: %w", err)
	}
	return a, nil
}

// Close runs the scoring procedure for the attempt and returns the derived
// result. The aggregation happens entirely inside finish_attempt; re-closing
// an already closed attempt returns the stored result unchanged.
func (r *AttemptRepository) Close(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	var byTopic []byte
	err := r.pool.QueryRow(ctx,
		`SELECT score, correct, total, by_topic FROM finish_attempt($1)`,
		attemptID,
	).Scan(&res.Score, &res.Correct, &res.Total, &byTopic)
	if err != nil {
		return nil, fmt.Errorf("finish attempt: %w", err)
	}

	if len(byTopic) > 0 {
		if err := json.Unmarshal(byTopic, &res.ByTopic); err != nil {
			return nil, fmt.Errorf("decode by_topic: %w", err)
		}
	}
	return res, nil
}

// GetByID retrieves one attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, mode, status, started_at, finished_at
		 FROM attempts WHERE id = $1`, attemptID,
	).Scan(&a.ID, &a.UserID, &a.Mode, &a.Status, &a.StartedAt, &a.FinishedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetSelection returns the learner's recorded selection for one question in
// one attempt, or nil when nothing was recorded.
func (r *AttemptRepository) GetSelection(ctx context.Context, attemptID, questionID uuid.UUID) (*model.OptionLabel, error) {
	var selected *string
	err := r.pool.QueryRow(ctx,
		`SELECT selected FROM attempt_answers
		 WHERE attempt_id = $1 AND question_id = $2`, attemptID, questionID,
	).Scan(&selected)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if selected == nil {
		return nil, nil
	}
	label := model.OptionLabel(*selected)
	return &label, nil
}

// ListByUser retrieves the user's attempt history, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AttemptSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, mode, status, started_at, finished_at, score, correct, total
		 FROM attempts
		 WHERE user_id = $1
		 ORDER BY started_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []model.AttemptSummary
	for rows.Next() {
		var s model.AttemptSummary
		if err := rows.Scan(&s.ID, &s.Mode, &s.Status, &s.StartedAt, &s.FinishedAt, &s.Score, &s.Correct, &s.Total); err != nil {
			return nil, err
		}
		history = append(history, s)
	}
	return history, rows.Err()
}
