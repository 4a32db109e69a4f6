package coordinator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
)

// recorder counts callback invocations per topic.
type recorder struct {
	// mu protects counts.
	mu sync.Mutex
	// counts maps topics to the number of invocations.
	counts map[Topic]int
}

func newRecorder() *recorder {
	return &recorder{
		counts: make(map[Topic]int),
	}
}

// listen registers a counting callback for the topic.
func (r *recorder) listen(reg *ListenerRegistry, topic Topic) func() {
	return reg.Register(topic, func(context.Context) {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.counts[topic]++
	})
}

// count returns the number of invocations for the topic.
func (r *recorder) count(topic Topic) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counts[topic]
}

// TestRegistry_SelectiveFanOut verifies only dirty topics fire, with the two
// bookkeeping topics always treated as dirty.
func TestRegistry_SelectiveFanOut(t *testing.T) {
	t.Parallel()

	reg := NewListenerRegistry()
	rec := newRecorder()

	for _, topic := range []Topic{
		AlarmTopic(),
		ZoneTopic(1), ZoneTroubleTopic(1),
		ZoneTopic(2), ZoneTroubleTopic(2),
		ConnectionStatusTopic(), NextRefreshTopic(),
	} {
		rec.listen(reg, topic)
	}

	reg.NotifyAll(context.Background(), &panel.Snapshot{
		AlarmChanged:   false,
		ChangedZoneIDs: []int{2},
	})

	require.Equal(t, 0, rec.count(AlarmTopic()))
	require.Equal(t, 0, rec.count(ZoneTopic(1)))
	require.Equal(t, 0, rec.count(ZoneTroubleTopic(1)))
	require.Equal(t, 1, rec.count(ZoneTopic(2)))
	require.Equal(t, 1, rec.count(ZoneTroubleTopic(2)))
	require.Equal(t, 1, rec.count(ConnectionStatusTopic()))
	require.Equal(t, 1, rec.count(NextRefreshTopic()))

	reg.NotifyAll(context.Background(), &panel.Snapshot{AlarmChanged: true})

	require.Equal(t, 1, rec.count(AlarmTopic()))
	require.Equal(t, 1, rec.count(ZoneTopic(2)))
	require.Equal(t, 2, rec.count(ConnectionStatusTopic()))
}

// TestRegistry_FullRefresh verifies a nil snapshot invokes every listener.
func TestRegistry_FullRefresh(t *testing.T) {
	t.Parallel()

	reg := NewListenerRegistry()
	rec := newRecorder()

	topics := []Topic{AlarmTopic(), ZoneTopic(7), ConnectionStatusTopic()}
	for _, topic := range topics {
		rec.listen(reg, topic)
	}

	reg.NotifyAll(context.Background(), nil)

	for _, topic := range topics {
		require.Equal(t, 1, rec.count(topic), topic.String())
	}
}

// TestRegistry_ReplaceAndUnregister checks re-registration replaces the slot
// and that a stale unregister handle does not remove the replacement.
func TestRegistry_ReplaceAndUnregister(t *testing.T) {
	t.Parallel()

	reg := NewListenerRegistry()

	var first, second int

	unregisterFirst := reg.Register(AlarmTopic(), func(context.Context) { first++ })
	reg.Register(AlarmTopic(), func(context.Context) { second++ })

	reg.NotifyAll(context.Background(), nil)
	require.Equal(t, 0, first)
	require.Equal(t, 1, second)

	// Stale handle: the slot was replaced, so this must be a no-op.
	unregisterFirst()

	reg.NotifyAll(context.Background(), nil)
	require.Equal(t, 2, second)
}

// TestRegistry_MissingListenerPanics asserts a dirty topic without a
// registered listener fails loudly.
func TestRegistry_MissingListenerPanics(t *testing.T) {
	t.Parallel()

	reg := NewListenerRegistry()
	newRecorder().listen(reg, ConnectionStatusTopic())

	// next_refresh listener is missing.
	require.Panics(t, func() {
		reg.NotifyAll(context.Background(), &panel.Snapshot{})
	})
}
