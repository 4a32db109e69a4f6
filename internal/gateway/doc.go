// Package gateway defines the boundary with the remote security-panel
// service: the Client interface consumed by the coordinator and the alarm
// state machine, the typed failure taxonomy (authentication, retry with
// deadline, retry with backoff) and the exponential backoff counter that
// clients use to pace reconnects.
package gateway
