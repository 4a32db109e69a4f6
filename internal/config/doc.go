// Package config defines connection settings used by binaries and provides
// helpers to load, validate and save them in YAML format.
//
// The Config type holds the gateway websocket URL, the auth token and the
// entity-state file path.
package config
