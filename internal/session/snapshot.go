package session

import (
	"github.com/google/uuid"
	"github.com/timisisipi/oposai-backend/internal/model"
)

// Snapshot is a consistent copy of the session state, safe to serialize.
type Snapshot struct {
	Phase        Phase                           `json:"phase"`
	AttemptID    *uuid.UUID                      `json:"attempt_id,omitempty"`
	Mode         model.AttemptMode               `json:"mode,omitempty"`
	Questions    []model.Question                `json:"questions"`
	ActiveIndex  int                             `json:"active_index"`
	Remaining    int                             `json:"remaining"`
	Answers      map[uuid.UUID]model.OptionLabel `json:"answers"`
	Marked       map[uuid.UUID]bool              `json:"marked"`
	Explanations map[uuid.UUID]string            `json:"explanations"`
	Answered     int                             `json:"answered"`
	Result       *model.Result                   `json:"result,omitempty"`
	LastError    string                          `json:"last_error,omitempty"`
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Phase:        c.phase,
		Questions:    append([]model.Question(nil), c.questions...),
		ActiveIndex:  c.activeIdx,
		Remaining:    c.remaining,
		Answers:      make(map[uuid.UUID]model.OptionLabel, len(c.answers)),
		Marked:       make(map[uuid.UUID]bool, len(c.marked)),
		Explanations: make(map[uuid.UUID]string, len(c.explanations)),
		Answered:     len(c.answers),
		Result:       c.result,
		LastError:    c.lastErr,
	}
	if c.attempt != nil {
		id := c.attempt.ID
		s.AttemptID = &id
		s.Mode = c.attempt.Mode
	}
	for k, v := range c.answers {
		s.Answers[k] = v
	}
	for k, v := range c.marked {
		s.Marked[k] = v
	}
	for k, v := range c.explanations {
		s.Explanations[k] = v
	}
	return s
}
