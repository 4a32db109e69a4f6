// Package monitor wires the gateway client, the update coordinator, and the
// alarm panel entity into one long-running service. It loads the settings
// file, connects to the gateway, registers every topic listener and service
// verb, and then blocks until the context is cancelled or the coordinator
// stops on a fatal error.
package monitor
