// Package host models the boundary with the host platform: the owning
// session (shutdown and re-authentication lifecycle), the entity registry
// with state publication and persistence, and named service verbs
// dispatched to entities.
package host
