package runner

import (
	"errors"
	"fmt"
)

// ErrEmptySequence is returned when Run is given nothing to send.
var ErrEmptySequence = errors.New("payload sequence is empty")

// ErrInvalidBaseURL is returned when the base URL is not an absolute http(s) URL.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// ErrUnexpectedStatus is wrapped by TransportError for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// TransportError aborts a run: the request could not be completed or the
// server answered with a non-2xx status.
type TransportError struct {
	Index   int // zero-based position in the sequence
	Payload string
	Status  int // 0 when no response was received
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %d (input %q) failed: %v", e.Index+1, e.Payload, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
