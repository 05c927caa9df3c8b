package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptMode enumerates how an attempt is taken.
type AttemptMode string

const (
	// ModeTimed is the plain quick-test mode: explanations deferred to the end.
	ModeTimed AttemptMode = "timed"
	// ModeTraining derives a tutor explanation immediately on each answer.
	ModeTraining AttemptMode = "training"
)

// AttemptStatus enumerates attempt lifecycle states.
type AttemptStatus string

const (
	AttemptStatusOpen   AttemptStatus = "open"
	AttemptStatusClosed AttemptStatus = "closed"
)

// Attempt is one instance of a learner taking a quiz.
type Attempt struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"user_id"`
	Mode       AttemptMode   `json:"mode"`
	Status     AttemptStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// TopicScore is one row of the by-topic breakdown.
type TopicScore struct {
	Topic   string `json:"topic"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
}

// Result is produced once per attempt at close time. It is derived by the
// scoring procedure and never recomputed locally.
type Result struct {
	Score   float64      `json:"score"`
	Correct int          `json:"correct"`
	Total   int          `json:"total"`
	ByTopic []TopicScore `json:"by_topic"`
}

// AttemptSummary is one row of the attempt history listing.
type AttemptSummary struct {
	ID         uuid.UUID     `json:"id"`
	Mode       AttemptMode   `json:"mode"`
	Status     AttemptStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Score      *float64      `json:"score,omitempty"`
	Correct    *int          `json:"correct,omitempty"`
	Total      *int          `json:"total,omitempty"`
}
