package alarmpanel

import (
	"errors"
	"fmt"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
)

// ErrCannotArm is returned when an arm request without bypass hits an opened
// or tripped zone.
var ErrCannotArm = errors.New("panel cannot be armed due to an opened or tripped zone - use force arm")

// ConflictingStateError rejects an arm request because the panel is not
// disarmed. The message names the current resolved state.
type ConflictingStateError struct {
	// Requested is the target state of the rejected command.
	Requested panel.State
	// Current is the resolved state at the time of the request.
	Current panel.State
}

// Error implements the error interface.
func (e *ConflictingStateError) Error() string {
	return fmt.Sprintf("cannot set alarm to %s because currently set to %s", e.Requested, e.Current)
}

// CommandRejectedError means the remote panel did not carry out an accepted
// command. The displayed state has already been rolled back when this is
// returned.
type CommandRejectedError struct {
	// Target is the state the command tried to reach.
	Target panel.State
	// Err is the transport failure, if the command failed with one.
	Err error
}

// Error implements the error interface.
func (e *CommandRejectedError) Error() string {
	return fmt.Sprintf("could not set alarm state to %s", e.Target)
}

// Unwrap exposes the underlying failure for errors.Is/As.
func (e *CommandRejectedError) Unwrap() error {
	return e.Err
}
