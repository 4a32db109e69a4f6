package coordinator

import (
	"context"
	"errors"

	"github.com/oshokin/pulse-sync/internal/gateway"
)

// Class is the coordinator's view of a wait-for-update failure.
type Class int

const (
	// ClassFatalAuth means credentials were rejected: stop looping and
	// trigger re-authentication instead of retrying.
	ClassFatalAuth Class = iota
	// ClassRetryDeadline is a transient failure with an explicit next-retry
	// timestamp: keep looping, the client waits out the deadline itself.
	ClassRetryDeadline
	// ClassRetryBackoff is a transient failure with backoff state: keep
	// looping, the client has advanced its backoff counter.
	ClassRetryBackoff
	// ClassCancelled is the shutdown signal: exit the loop cleanly without
	// further fan-out.
	ClassCancelled
	// ClassUnknown is an unrecognized failure: propagate it upward rather
	// than swallow it.
	ClassUnknown
)

// String returns the class name for logging.
func (c Class) String() string {
	switch c {
	case ClassFatalAuth:
		return "fatal_auth"
	case ClassRetryDeadline:
		return "retry_with_deadline"
	case ClassRetryBackoff:
		return "retry_with_backoff"
	case ClassCancelled:
		return "cancelled"
	case ClassUnknown:
		return "unknown_fatal"
	default:
		return "invalid"
	}
}

// Classify maps a failure raised by the gateway's wait-for-update call into
// exactly one class. Pure classification: the caller owns all state updates.
func Classify(err error) Class {
	var (
		authErr    *gateway.AuthError
		retryErr   *gateway.RetryError
		backoffErr *gateway.BackoffError
	)

	switch {
	case errors.As(err, &authErr):
		return ClassFatalAuth
	case errors.As(err, &retryErr):
		return ClassRetryDeadline
	case errors.As(err, &backoffErr):
		return ClassRetryBackoff
	case errors.Is(err, context.Canceled):
		return ClassCancelled
	default:
		return ClassUnknown
	}
}
