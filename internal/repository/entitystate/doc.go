// Package entitystate persists the last published state of host entities.
//
// It defines a Repository interface and a JSON file implementation keyed by
// entity unique ID, used to report the previous state when an entity is
// registered again after a restart.
package entitystate
