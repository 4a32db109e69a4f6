package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/pulse-sync/internal/logger"
	"github.com/oshokin/pulse-sync/internal/repository/entitystate"
)

// DeviceInfo groups an entity under a device in the host's device registry.
type DeviceInfo struct {
	// Identifiers uniquely name the device; the site ID is used here since
	// it is unique across sites.
	Identifiers []string
	// Manufacturer of the device.
	Manufacturer string
	// Model of the device.
	Model string
	// Name is the human-readable device label.
	Name string
	// ViaDevice is a non-owning back-reference to the gateway device the
	// panel is reached through.
	ViaDevice string
}

// Entity is the per-entity surface exposed to the host platform.
type Entity interface {
	// UniqueID identifies the entity across restarts.
	UniqueID() string
	// Name is the human-readable entity label.
	Name() string
	// State is the entity's current state string.
	State() string
	// Attributes are the entity's extra attributes.
	Attributes() map[string]any
	// Available reports whether the entity is usable.
	Available() bool
	// DeviceInfo groups the entity under its device.
	DeviceInfo() DeviceInfo
}

// Verb is a host-level command action dispatched to an entity.
type Verb func(ctx context.Context) error

var (
	// ErrEntityExists is returned when an entity ID is registered twice.
	ErrEntityExists = errors.New("entity already registered")
	// ErrUnknownEntity is returned when no entity matches the requested ID.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrUnknownVerb is returned when no verb matches the requested name.
	ErrUnknownVerb = errors.New("unknown service verb")
)

// Registry is the host platform's entity registry: it tracks registered
// entities, receives their state publications and dispatches named service
// verbs to them.
type Registry struct {
	// mu protects the maps below.
	mu sync.RWMutex
	// entities maps unique IDs to registered entities.
	entities map[string]Entity
	// verbs maps verb name to entity ID to action.
	verbs map[string]map[string]Verb
	// store persists last published entity states; optional.
	store entitystate.Repository
}

// NewRegistry creates a registry. The store may be nil to disable
// persistence.
func NewRegistry(store entitystate.Repository) *Registry {
	return &Registry{
		entities: make(map[string]Entity, 4),
		verbs:    make(map[string]map[string]Verb, 4),
		store:    store,
	}
}

// AddEntity registers one entity. If a previous state was persisted for its
// unique ID, it is reported for diagnostics; the live state always comes
// from the entity itself.
func (r *Registry) AddEntity(ctx context.Context, entity Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := entity.UniqueID()
	if _, ok := r.entities[id]; ok {
		return fmt.Errorf("%w: %s", ErrEntityExists, id)
	}

	r.entities[id] = entity

	logger.InfoKV(ctx, "Entity registered",
		"entity_id", id, "name", entity.Name(), "state", entity.State())

	if r.store == nil {
		return nil
	}

	record, err := r.store.Load(ctx, id)
	switch {
	case err == nil:
		logger.DebugKV(ctx, "Previous entity state restored",
			"entity_id", id, "state", record.State, "updated_at", record.UpdatedAt)
	case errors.Is(err, entitystate.ErrNotFound):
		// First registration.
	default:
		return fmt.Errorf("load entity state: %w", err)
	}

	return nil
}

// Entity returns a registered entity by unique ID.
func (r *Registry) Entity(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.entities[id]

	return entity, ok
}

// Publish records a state change of the entity. Entities call this through
// their bound publisher immediately after every state write. Persistence
// failures are logged, not surfaced: publication must never block a command.
func (r *Registry) Publish(ctx context.Context, entity Entity) {
	state := entity.State()

	logger.DebugKV(ctx, "Entity state published",
		"entity_id", entity.UniqueID(), "state", state, "available", entity.Available())

	r.mu.RLock()
	store := r.store
	r.mu.RUnlock()

	if store == nil {
		return
	}

	record := &entitystate.Record{
		State:      state,
		Attributes: entity.Attributes(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := store.Save(ctx, entity.UniqueID(), record); err != nil {
		logger.ErrorKV(ctx, "Failed to persist entity state",
			"entity_id", entity.UniqueID(), "error", err)
	}
}

// RegisterVerb exposes a named command action for one entity.
// Re-registration replaces the previous action.
func (r *Registry) RegisterVerb(name string, entity Entity, action Verb) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := entity.UniqueID()
	if _, ok := r.entities[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}

	if r.verbs[name] == nil {
		r.verbs[name] = make(map[string]Verb, 1)
	}

	r.verbs[name][id] = action

	return nil
}

// Call dispatches a named verb to the entity.
func (r *Registry) Call(ctx context.Context, name, entityID string) error {
	r.mu.RLock()
	actions, ok := r.verbs[name]
	action := actions[entityID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVerb, name)
	}

	if action == nil {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entityID)
	}

	return action(ctx)
}
