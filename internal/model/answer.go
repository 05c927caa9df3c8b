package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord is the learner's state for one question within one attempt.
// The (AttemptID, QuestionID) pair is a unique composite key with
// last-write-wins upsert semantics, both locally and in the durable store.
type AnswerRecord struct {
	AttemptID  uuid.UUID    `json:"attempt_id"`
	QuestionID uuid.UUID    `json:"question_id"`
	Selected   *OptionLabel `json:"selected,omitempty"`
	Marked     bool         `json:"marked"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
