package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/timisisipi/oposai-backend/internal/config"
	"github.com/timisisipi/oposai-backend/internal/model"
)

// answerPayload is one queued answer upsert.
type answerPayload struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	Selected   string `json:"selected"`
}

// markPayload is one queued mark upsert.
type markPayload struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	Marked     bool   `json:"marked"`
}

// QueuePersister implements the session controller's answer and mark
// persisters by enqueueing payloads onto Redis lists. The PersistWorker
// drains those lists into PostgreSQL, so the caller's side of the write is
// fire-and-forget: an enqueue failure is the only error surfaced here.
type QueuePersister struct {
	rdb *redis.Client
}

// NewQueuePersister creates a QueuePersister.
func NewQueuePersister(rdb *redis.Client) *QueuePersister {
	return &QueuePersister{rdb: rdb}
}

// PersistAnswer enqueues a last-write-wins answer upsert.
func (p *QueuePersister) PersistAnswer(ctx context.Context, attemptID, questionID uuid.UUID, label model.OptionLabel) error {
	raw, err := json.Marshal(answerPayload{
		AttemptID:  attemptID.String(),
		QuestionID: questionID.String(),
		Selected:   string(label),
	})
	if err != nil {
		return err
	}
	if err := p.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue answer: %w", err)
	}
	return nil
}

// PersistMark enqueues a marked-for-review upsert.
func (p *QueuePersister) PersistMark(ctx context.Context, attemptID, questionID uuid.UUID, marked bool) error {
	raw, err := json.Marshal(markPayload{
		AttemptID:  attemptID.String(),
		QuestionID: questionID.String(),
		Marked:     marked,
	})
	if err != nil {
		return err
	}
	if err := p.rdb.RPush(ctx, config.WorkerKey.PersistMarksQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue mark: %w", err)
	}
	return nil
}
