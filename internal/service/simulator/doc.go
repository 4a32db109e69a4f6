// Package simulator implements a panel gateway simulator speaking the pulse
// wire protocol over websocket: hello on connect, state pushes on change and
// keepalive, correlated arm/disarm results. It backs the pulse-simulator
// binary and the client round-trip tests.
package simulator
