package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOpenAttempt is returned by answer-phase operations when no
	// attempt is currently open.
	ErrNoOpenAttempt = errors.New("no open attempt")

	// ErrAttemptActive is returned by Start while another attempt is
	// loading or being answered.
	ErrAttemptActive = errors.New("an attempt is already in progress")

	// ErrIncomplete is returned by Finish when questions remain unanswered
	// and the caller did not confirm. No scorer call is made.
	ErrIncomplete = errors.New("attempt has unanswered questions")

	// ErrFinishInFlight is returned when Finish is called while a previous
	// finish is still being scored.
	ErrFinishInFlight = errors.New("finish already in flight")

	// ErrUnknownQuestion is returned when the question id does not belong
	// to the current question set.
	ErrUnknownQuestion = errors.New("question not in current attempt")

	// ErrIndexOutOfRange is returned by JumpTo for an index outside the
	// current question set.
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// StartError wraps a failure of either the question fetch or the
// attempt-open call. The session returns to idle and the cause's message is
// surfaced to the caller.
type StartError struct {
	Cause error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start attempt: %v", e.Cause)
}

func (e *StartError) Unwrap() error { return e.Cause }

// ErrNoQuestions is returned by Start when the bank yields an empty set
// (an undersized set is fine, an empty one is not).
var ErrNoQuestions = errors.New("no questions available for the requested filter")
