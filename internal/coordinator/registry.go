package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
	"github.com/oshokin/pulse-sync/internal/logger"
)

// TopicKind identifies one observable facet of the synchronized state.
type TopicKind int

const (
	// TopicAlarm fires when the alarm status changed.
	TopicAlarm TopicKind = iota
	// TopicZone fires when a zone's state changed.
	TopicZone
	// TopicZoneTrouble fires when a zone's state changed, for trouble observers.
	TopicZoneTrouble
	// TopicConnectionStatus fires on every successful cycle and on error
	// transitions; it reflects coordinator-wide connection bookkeeping.
	TopicConnectionStatus
	// TopicNextRefresh fires on every successful cycle and on error
	// transitions; it reflects refresh timing bookkeeping.
	TopicNextRefresh
)

// Topic is a typed listener key: a kind plus the zone number for the
// per-zone kinds. Zone is zero for site-wide kinds.
type Topic struct {
	// Kind is the observable facet.
	Kind TopicKind
	// Zone is the zone number for TopicZone and TopicZoneTrouble.
	Zone int
}

// String returns the topic name for logging.
func (t Topic) String() string {
	switch t.Kind {
	case TopicAlarm:
		return "alarm"
	case TopicZone:
		return fmt.Sprintf("zone %d", t.Zone)
	case TopicZoneTrouble:
		return fmt.Sprintf("zone %d trouble", t.Zone)
	case TopicConnectionStatus:
		return "connection_status"
	case TopicNextRefresh:
		return "next_refresh"
	default:
		return "invalid"
	}
}

// AlarmTopic returns the key for the alarm facet.
func AlarmTopic() Topic {
	return Topic{Kind: TopicAlarm}
}

// ZoneTopic returns the key for one zone's state facet.
func ZoneTopic(id int) Topic {
	return Topic{Kind: TopicZone, Zone: id}
}

// ZoneTroubleTopic returns the key for one zone's trouble facet.
func ZoneTroubleTopic(id int) Topic {
	return Topic{Kind: TopicZoneTrouble, Zone: id}
}

// ConnectionStatusTopic returns the key for the connection bookkeeping facet.
func ConnectionStatusTopic() Topic {
	return Topic{Kind: TopicConnectionStatus}
}

// NextRefreshTopic returns the key for the refresh bookkeeping facet.
func NextRefreshTopic() Topic {
	return Topic{Kind: TopicNextRefresh}
}

// Callback is invoked when the listener's topic is dirty for a cycle.
type Callback func(ctx context.Context)

// ListenerRegistry maps topics to single-callback slots. Every topic that can
// appear in a snapshot must be registered before the coordinator starts.
type ListenerRegistry struct {
	// mu protects the listener slots.
	mu sync.RWMutex
	// listeners holds at most one slot per topic.
	listeners map[Topic]*listenerSlot
}

// listenerSlot wraps a callback so re-registration can be told apart from the
// registration an unregister handle was issued for.
type listenerSlot struct {
	callback Callback
}

// NewListenerRegistry creates an empty registry.
func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{
		listeners: make(map[Topic]*listenerSlot, 16),
	}
}

// Register installs the callback for the topic, replacing any existing slot.
// The returned function deregisters the listener; it is a no-op once the
// topic has been re-registered.
func (r *ListenerRegistry) Register(topic Topic, callback Callback) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := &listenerSlot{callback: callback}
	r.listeners[topic] = slot

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.listeners[topic] == slot {
			delete(r.listeners, topic)
		}
	}
}

// NotifyAll fans the snapshot out to listeners. A nil snapshot is a full
// refresh: every registered listener is invoked because the diff is unknown.
// Otherwise only the listeners whose facets are dirty fire: the alarm
// listener iff the alarm changed, the zone and zone-trouble listeners for
// every changed zone, and the two bookkeeping topics unconditionally.
func (r *ListenerRegistry) NotifyAll(ctx context.Context, snapshot *panel.Snapshot) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if snapshot == nil {
		for _, slot := range r.listeners {
			slot.callback(ctx)
		}

		return
	}

	if snapshot.AlarmChanged {
		r.invoke(ctx, AlarmTopic())
	}

	for _, id := range snapshot.ChangedZoneIDs {
		r.invoke(ctx, ZoneTopic(id))
		r.invoke(ctx, ZoneTroubleTopic(id))
	}

	for _, topic := range []Topic{ConnectionStatusTopic(), NextRefreshTopic()} {
		r.invoke(ctx, topic)
	}
}

// invoke fires one topic's listener. A dirty topic without a listener is a
// wiring bug: the fixed topic set must be fully registered before the
// coordinator starts, so this fails loudly instead of skipping.
func (r *ListenerRegistry) invoke(ctx context.Context, topic Topic) {
	slot, ok := r.listeners[topic]
	if !ok {
		logger.PanicKV(ctx, "No listener registered for topic", "topic", topic.String())
	}

	slot.callback(ctx)
}
