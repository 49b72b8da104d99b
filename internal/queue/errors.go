package queue

import (
	"errors"
)

var (
	// ErrMalformedPayload is returned when a payload cannot be decoded.
	ErrMalformedPayload = errors.New("malformed message payload")

	// ErrUnhandledMessage is returned by the catch-all handler.
	ErrUnhandledMessage = errors.New("no handler for message type")

	// ErrMessageNotFound is returned by gateways when an id is unknown.
	ErrMessageNotFound = errors.New("message not found")

	// ErrAlreadyRunning is returned by Start on a running processor.
	ErrAlreadyRunning = errors.New("processor already running")

	// ErrShutdownTimeout is returned by Stop when in-flight work did not
	// finish within the timeout.
	ErrShutdownTimeout = errors.New("timed out waiting for in-flight messages")

	// ErrInvalidConfig is returned for unusable processor settings.
	ErrInvalidConfig = errors.New("invalid processor configuration")
)

// permanentError marks an error as not worth retrying.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() error   { return e.err }
func (e *permanentError) Retryable() bool { return false }

// Permanent wraps err so that the processor archives the message
// immediately instead of spending its retry budget. Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable reports whether err should be retried. Errors are retryable
// unless something in their chain has a Retryable method returning false.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}
