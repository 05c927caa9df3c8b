package tutor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/timisisipi/oposai-backend/internal/config"
	"github.com/timisisipi/oposai-backend/internal/model"
)

// hotCacheTTL bounds the Redis copy of an explanation. The durable Postgres
// row has no expiry.
const hotCacheTTL = 24 * time.Hour

// QuestionReader loads the tutor-side question projection (stem, options,
// correct option, topic).
type QuestionReader interface {
	GetTutorView(ctx context.Context, questionID uuid.UUID) (*model.Question, error)
}

// SelectionReader returns the learner's recorded selection for a question
// within an attempt, or nil when none was recorded.
type SelectionReader interface {
	GetSelection(ctx context.Context, attemptID, questionID uuid.UUID) (*model.OptionLabel, error)
}

// ExplanationStore is the durable explanation cache with idempotent upsert
// semantics on (attempt, question).
type ExplanationStore interface {
	Upsert(ctx context.Context, attemptID, questionID uuid.UUID, userID *uuid.UUID, text string) error
	Get(ctx context.Context, attemptID, questionID uuid.UUID) (string, error)
}

// Upstream exposes the two text-derivation call shapes.
type Upstream interface {
	ChatCompletion(ctx context.Context, system, user string) (string, error)
	Respond(ctx context.Context, input string) (string, error)
}

// Service derives tutor explanations: primary call shape, fallback call
// shape, idempotent cache. Safe for concurrent use; concurrent requests for
// the same key are tolerated because the cache write is an upsert, not
// because requests are serialized.
type Service struct {
	questions  QuestionReader
	selections SelectionReader
	cache      ExplanationStore
	upstream   Upstream
	rdb        *redis.Client // optional hot cache
	timeout    time.Duration
	log        zerolog.Logger
}

// NewService creates a tutor Service. rdb may be nil to disable the hot cache.
func NewService(
	questions QuestionReader,
	selections SelectionReader,
	cache ExplanationStore,
	upstream Upstream,
	rdb *redis.Client,
	timeout time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		questions:  questions,
		selections: selections,
		cache:      cache,
		upstream:   upstream,
		rdb:        rdb,
		timeout:    timeout,
		log:        log.With().Str("component", "tutor").Logger(),
	}
}

// Explain derives an explanation for (attemptID, questionID).
//
// A previously cached text short-circuits the derivation. Otherwise the
// primary call shape runs first; an explicit provider error stops the
// pipeline with that message verbatim, while an empty result or a
// non-provider failure (timeout included) falls through to the fallback
// shape under the same rule. With no usable text after both, ErrUnavailable
// is returned. On success the text is upserted into the cache; a cache
// write failure is logged and does not fail the call.
func (s *Service) Explain(ctx context.Context, attemptID, questionID uuid.UUID, userID *uuid.UUID) (string, error) {
	if cached := s.readCache(ctx, attemptID, questionID); cached != "" {
		return cached, nil
	}

	question, err := s.questions.GetTutorView(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrQuestionNotFound
		}
		return "", err
	}

	// The learner's selection enriches the prompt but is not required.
	selection, err := s.selections.GetSelection(ctx, attemptID, questionID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Selection lookup failed")
		selection = nil
	}

	user := buildUserPrompt(question, selection)

	text, err := s.callBounded(ctx, func(callCtx context.Context) (string, error) {
		return s.upstream.ChatCompletion(callCtx, systemPrompt, user)
	})
	if err != nil {
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) {
			return "", upstreamErr
		}
		s.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("Primary derivation failed")
	}

	if text == "" {
		text, err = s.callBounded(ctx, func(callCtx context.Context) (string, error) {
			return s.upstream.Respond(callCtx, systemPrompt+"\n\n"+user)
		})
		if err != nil {
			var upstreamErr *UpstreamError
			if errors.As(err, &upstreamErr) {
				return "", upstreamErr
			}
			s.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("Fallback derivation failed")
		}
	}

	if text == "" {
		return "", ErrUnavailable
	}

	s.writeCache(ctx, attemptID, questionID, userID, text)
	return text, nil
}

// callBounded runs one upstream call under the configured timeout.
func (s *Service) callBounded(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return call(callCtx)
}

// readCache checks the Redis hot cache, then the durable store. Both reads
// are best-effort: a failed lookup just means recomputation.
func (s *Service) readCache(ctx context.Context, attemptID, questionID uuid.UUID) string {
	if s.rdb != nil {
		key := config.CacheKey.TutorExplanationKey(attemptID.String(), questionID.String())
		if text, err := s.rdb.Get(ctx, key).Result(); err == nil && text != "" {
			return text
		}
	}

	text, err := s.cache.Get(ctx, attemptID, questionID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Cache read failed")
		return ""
	}
	return text
}

// writeCache upserts the explanation durably and refreshes the hot cache.
// Failures are non-fatal: the derived text is already in hand.
func (s *Service) writeCache(ctx context.Context, attemptID, questionID uuid.UUID, userID *uuid.UUID, text string) {
	if err := s.cache.Upsert(ctx, attemptID, questionID, userID, text); err != nil {
		s.log.Warn().Err(err).
			Str("attempt_id", attemptID.String()).
			Str("question_id", questionID.String()).
			Msg("Explanation cache upsert failed")
	}

	if s.rdb != nil {
		key := config.CacheKey.TutorExplanationKey(attemptID.String(), questionID.String())
		if err := s.rdb.Set(ctx, key, text, hotCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Hot cache write failed")
		}
	}
}
