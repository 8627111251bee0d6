// Package pipeline implements the event generation pipeline core: the
// orchestrator, the retry policy, the draft validator and the capability
// interfaces its collaborators implement.
package pipeline

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ErrEmptyEvidence is returned when no source contributed any usable
// evidence for a topic. The cycle is skipped, not retried.
var ErrEmptyEvidence = errors.New("no usable evidence gathered")

// ErrNoSignal is returned by a scorer that cannot derive its signal from
// the bundle (for example no odds in the evidence). It is not transient.
var ErrNoSignal = errors.New("no signal derivable from evidence")

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks an adapter error as likely to succeed on retry
// (timeouts, rate limits, temporary upstream unavailability).
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is eligible for retry: explicitly
// marked, a deadline expiry, or a network timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// TransientStatus reports whether an HTTP status code from an upstream
// API should be classified as transient.
func TransientStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}
