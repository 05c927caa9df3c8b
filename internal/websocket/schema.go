package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionMark     Action = "mark"
	ActionNavigate Action = "navigate"
	ActionFinish   Action = "finish"
	ActionKey      Action = "key"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest records a selection for one question.
type AnswerRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
	Label      string `json:"label"`
}

// MarkRequest toggles the marked-for-review flag of one question.
type MarkRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
}

// NavigateRequest moves the active question, either relatively or absolutely.
type NavigateRequest struct {
	Action    Action `json:"action"`
	Direction *int   `json:"direction,omitempty"`
	Index     *int   `json:"index,omitempty"`
}

// FinishRequest asks to close and score the attempt.
type FinishRequest struct {
	Action            Action `json:"action"`
	ConfirmIncomplete bool   `json:"confirm_incomplete"`
}

// KeyRequest applies a keyboard shortcut to the active question.
type KeyRequest struct {
	Action Action `json:"action"`
	Key    string `json:"key"`
}

// ─── Events (Server → Client) ───────────────────────────────────────
// Session events (ticks, phase changes, saved answers, explanations) are
// forwarded as-is from the session feed; the types below cover the
// connection-level extras.

type Event string

const (
	EventError Event = "error"
	EventPong  Event = "pong"
)

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
