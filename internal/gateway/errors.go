package gateway

import (
	"fmt"
	"time"
)

// AuthError means the remote service rejected the client's credentials.
// It is fatal: the caller must stop retrying and trigger re-authentication.
type AuthError struct {
	// Reason is the human-readable rejection cause from the service.
	Reason string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "gateway authentication failed"
	}

	return fmt.Sprintf("gateway authentication failed: %s", e.Reason)
}

// RetryError is a transient failure carrying an explicit next-retry
// timestamp. The client blocks until that deadline before signalling again;
// the caller only needs to keep looping.
type RetryError struct {
	// RetryAt is when the client will attempt the operation again.
	RetryAt time.Time
	// Err is the underlying failure, if any.
	Err error
}

// Error implements the error interface.
func (e *RetryError) Error() string {
	return fmt.Sprintf("gateway temporarily unavailable, retrying at %s", e.RetryAt.Format(time.RFC3339))
}

// Unwrap exposes the underlying failure for errors.Is/As.
func (e *RetryError) Unwrap() error {
	return e.Err
}

// BackoffError is a transient failure carrying the client's exponential
// backoff state. The client advances the counter itself and blocks for the
// current interval before signalling again; the caller only needs to keep
// looping.
type BackoffError struct {
	// Backoff is the client's backoff counter after this failure.
	Backoff *Backoff
	// Err is the underlying failure, if any.
	Err error
}

// Error implements the error interface.
func (e *BackoffError) Error() string {
	return fmt.Sprintf("gateway unreachable, backing off for %s", e.Backoff.Current())
}

// Unwrap exposes the underlying failure for errors.Is/As.
func (e *BackoffError) Unwrap() error {
	return e.Err
}
