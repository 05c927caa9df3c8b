package model

import (
	"time"

	"github.com/google/uuid"
)

// Explanation is a cached tutor explanation, upserted idempotently on the
// (AttemptID, QuestionID) composite key and never deleted.
type Explanation struct {
	AttemptID  uuid.UUID  `json:"attempt_id"`
	QuestionID uuid.UUID  `json:"question_id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Text       string     `json:"text"`
	CreatedAt  time.Time  `json:"created_at"`
}
