package tutor

import "errors"

// ErrUnavailable means no upstream call produced usable text after the
// fallback was exhausted. A "try again later" condition for the caller.
var ErrUnavailable = errors.New("el tutor no devolvió texto. Intenta de nuevo en unos minutos")

// ErrQuestionNotFound means the referenced question does not exist.
var ErrQuestionNotFound = errors.New("question not found")

// UpstreamError is an explicit provider-reported failure. Its message is
// propagated verbatim to the caller and it stops the fallback chain: a
// provider that clearly says "no" is not retried against another call shape.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string { return e.Message }
