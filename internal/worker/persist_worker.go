package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/timisisipi/oposai-backend/internal/config"
	"github.com/timisisipi/oposai-backend/internal/model"
	"github.com/timisisipi/oposai-backend/internal/repository"
)

// PersistWorker consumes the answer and mark queues and UPSERTs the
// payloads into PostgreSQL. Because both writes are idempotent on
// (attempt_id, question_id), out-of-order or repeated deliveries are
// harmless: the last queued value for a key wins.
type PersistWorker struct {
	answers *repository.AnswerRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewPersistWorker creates a new PersistWorker.
func NewPersistWorker(answers *repository.AnswerRepository, rdb *redis.Client, log zerolog.Logger) *PersistWorker {
	return &PersistWorker{
		answers: answers,
		rdb:     rdb,
		log:     log.With().Str("component", "persist_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *PersistWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *PersistWorker) processNext(ctx context.Context) {
	// BLPop watches both queues and blocks until an item arrives or the
	// one-second timeout passes.
	result, err := w.rdb.BLPop(ctx, time.Second,
		config.WorkerKey.PersistAnswersQueue,
		config.WorkerKey.PersistMarksQueue,
	).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	queue, raw := result[0], result[1]
	if err := w.persist(ctx, queue, raw); err != nil {
		w.log.Error().Err(err).Str("queue", queue).Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, queue, raw)
		time.Sleep(5 * time.Second)
	}
}

func (w *PersistWorker) persist(ctx context.Context, queue, raw string) error {
	switch queue {
	case config.WorkerKey.PersistMarksQueue:
		var p markPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return err
		}
		attemptID, questionID, err := parseKey(p.AttemptID, p.QuestionID)
		if err != nil {
			return err
		}
		return w.answers.UpsertMark(ctx, attemptID, questionID, p.Marked)

	default:
		var p answerPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return err
		}
		attemptID, questionID, err := parseKey(p.AttemptID, p.QuestionID)
		if err != nil {
			return err
		}
		return w.answers.UpsertAnswer(ctx, attemptID, questionID, model.OptionLabel(p.Selected))
	}
}

func parseKey(attempt, question string) (uuid.UUID, uuid.UUID, error) {
	attemptID, err := uuid.Parse(attempt)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	questionID, err := uuid.Parse(question)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return attemptID, questionID, nil
}

// drain processes all remaining items in both queues before shutdown.
func (w *PersistWorker) drain(ctx context.Context) {
	drained := 0
	for _, queue := range []string{
		config.WorkerKey.PersistAnswersQueue,
		config.WorkerKey.PersistMarksQueue,
	} {
		for {
			raw, err := w.rdb.LPop(ctx, queue).Result()
			if err != nil {
				break
			}
			if err := w.persist(ctx, queue, raw); err != nil {
				w.log.Error().Err(err).Msg("Drain persist error")
				w.rdb.RPush(ctx, queue, raw)
				break
			}
			drained++
		}
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
