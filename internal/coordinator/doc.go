// Package coordinator keeps the local model of the remote panel service up
// to date. It owns a single background task that waits for remote change
// notifications, classifies failures into retry, backoff and fatal
// categories, commits per-cycle snapshots and fans granular change events
// out to per-topic listeners without redundant notification.
package coordinator
