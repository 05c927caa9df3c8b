package model

import (
	"fmt"

	"github.com/google/uuid"
)

// OptionLabel is a single-letter answer label from the closed A–D alphabet.
type OptionLabel string

const (
	LabelA OptionLabel = "A"
	LabelB OptionLabel = "B"
	LabelC OptionLabel = "C"
	LabelD OptionLabel = "D"
)

// ParseOptionLabel validates a raw label against the closed alphabet.
func ParseOptionLabel(raw string) (OptionLabel, error) {
	switch OptionLabel(raw) {
	case LabelA, LabelB, LabelC, LabelD:
		return OptionLabel(raw), nil
	}
	return "", fmt.Errorf("invalid option label %q", raw)
}

// Option is one selectable answer of a question.
type Option struct {
	Label OptionLabel `json:"label"`
	Text  string      `json:"text"`
}

// Question is a multiple-choice question as served to the learner.
// CorrectOption is only populated on the tutor-side projection and is
// never included in payloads sent before scoring.
type Question struct {
	ID            uuid.UUID   `json:"id"`
	Stem          string      `json:"stem"`
	Options       []Option    `json:"options"`
	Topic         string      `json:"topic,omitempty"`
	TopicID       *uuid.UUID  `json:"topic_id,omitempty"`
	Subject       string      `json:"subject,omitempty"`
	Difficulty    string      `json:"difficulty"`
	CorrectOption OptionLabel `json:"-"`
}

// Topic is a syllabus topic used for filtering and the by-topic breakdown.
type Topic struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// SampleFilter narrows a random draw from the question bank. Both
// dimensions are optional; nil means no filter.
type SampleFilter struct {
	TopicID   *uuid.UUID
	SubjectID *uuid.UUID
}
