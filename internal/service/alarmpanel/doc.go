// Package alarmpanel implements the alarm entity: a command state machine
// that resolves the externally visible alarm state from the remote panel
// status, holds an optimistic assumed state while arm/disarm commands are
// outstanding or the gateway is offline, and enforces precondition checks
// before transitioning.
package alarmpanel
