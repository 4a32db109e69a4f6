package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
	"github.com/oshokin/pulse-sync/internal/gateway"
)

// waitStep is one scripted result of WaitForUpdate.
type waitStep struct {
	// snapshot is returned when err is nil.
	snapshot *panel.Snapshot
	// err is the failure to raise for this cycle.
	err error
}

// scriptedClient is a gateway.Client whose WaitForUpdate pops scripted steps
// and then blocks until cancellation. The exhausted channel closes when the
// loop asks for a step after the script ran out, which guarantees every
// scripted cycle has been fully processed (the loop is strictly sequential).
type scriptedClient struct {
	// mu protects steps.
	mu sync.Mutex
	// steps are the remaining scripted results.
	steps []waitStep
	// exhausted closes once the script ran out.
	exhausted chan struct{}
	// exhaustOnce guards closing exhausted.
	exhaustOnce sync.Once

	// status is the read-through panel status.
	status panel.Status
	// online is the read-through gateway flag.
	online bool
}

func newScriptedClient(steps ...waitStep) *scriptedClient {
	return &scriptedClient{
		steps:     steps,
		exhausted: make(chan struct{}),
		status:    panel.StatusOff,
		online:    true,
	}
}

func (c *scriptedClient) WaitForUpdate(ctx context.Context) (*panel.Snapshot, error) {
	c.mu.Lock()

	if len(c.steps) == 0 {
		c.mu.Unlock()
		c.exhaustOnce.Do(func() { close(c.exhausted) })

		<-ctx.Done()

		return nil, ctx.Err()
	}

	step := c.steps[0]
	c.steps = c.steps[1:]
	c.mu.Unlock()

	return step.snapshot, step.err
}

func (c *scriptedClient) Arm(context.Context, panel.ArmMode, bool) (bool, error) {
	return true, nil
}

func (c *scriptedClient) Disarm(context.Context) (bool, error) { return true, nil }

func (c *scriptedClient) Status() panel.Status { return c.status }

func (c *scriptedClient) Zones() []panel.Zone { return nil }

func (c *scriptedClient) Site() panel.Site { return panel.Site{ID: "site-1"} }

func (c *scriptedClient) LastUpdate() time.Time { return time.Unix(0, 0) }

func (c *scriptedClient) Online() bool { return c.online }

func (c *scriptedClient) Close() error { return nil }

// fakeSession records re-authentication requests.
type fakeSession struct {
	// mu protects reauths.
	mu sync.Mutex
	// reauths counts RequestReauth calls.
	reauths int
	// stopping mimics host shutdown.
	stopping bool
}

func (s *fakeSession) RequestReauth(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reauths++
}

func (s *fakeSession) Stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stopping
}

func (s *fakeSession) reauthCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reauths
}

// registerAll installs counting listeners for the fixed topic set used by
// the coordinator tests.
func registerAll(c *Coordinator, rec *recorder, zoneIDs ...int) {
	topics := []Topic{AlarmTopic(), ConnectionStatusTopic(), NextRefreshTopic()}
	for _, id := range zoneIDs {
		topics = append(topics, ZoneTopic(id), ZoneTroubleTopic(id))
	}

	for _, topic := range topics {
		rec.listen(c.registry, topic)
	}
}

// TestCoordinator_StartRequiresSession asserts the not-ready condition.
func TestCoordinator_StartRequiresSession(t *testing.T) {
	t.Parallel()

	c := New(newScriptedClient(), nil)

	require.ErrorIs(t, c.Start(context.Background()), ErrNotReady)
}

// TestCoordinator_SuccessFanOut runs one successful cycle and verifies
// exactly the dirty topics fire, with the snapshot committed before fan-out.
func TestCoordinator_SuccessFanOut(t *testing.T) {
	t.Parallel()

	client := newScriptedClient(waitStep{
		snapshot: &panel.Snapshot{
			AlarmChanged:   true,
			ChangedZoneIDs: []int{2},
		},
	})

	c := New(client, &fakeSession{})
	rec := newRecorder()
	registerAll(c, rec, 1, 2)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	// Idempotent: second Start while running is a no-op.
	require.NoError(t, c.Start(ctx))

	<-client.exhausted

	require.Equal(t, 1, rec.count(AlarmTopic()))
	require.Equal(t, 0, rec.count(ZoneTopic(1)))
	require.Equal(t, 1, rec.count(ZoneTopic(2)))
	require.Equal(t, 1, rec.count(ZoneTroubleTopic(2)))
	require.Equal(t, 1, rec.count(ConnectionStatusTopic()))
	require.Equal(t, 1, rec.count(NextRefreshTopic()))

	snapshot := c.Snapshot()
	require.NotNil(t, snapshot)
	require.True(t, snapshot.AlarmChanged)
	require.NoError(t, c.LastError())

	require.NoError(t, c.Stop(ctx))
	// Safe to call twice.
	require.NoError(t, c.Stop(ctx))
}

// TestCoordinator_RetryDedup covers scenario E plus the dedup rule: a first
// retryable failure fans out exactly once, the second consecutive one not at
// all, and the next success resumes normal fan-out.
func TestCoordinator_RetryDedup(t *testing.T) {
	t.Parallel()

	backoff := gateway.NewBackoff(time.Millisecond, time.Second)
	client := newScriptedClient(
		waitStep{snapshot: &panel.Snapshot{}},
		waitStep{err: &gateway.RetryError{RetryAt: time.Now().Add(time.Minute)}},
		waitStep{err: &gateway.BackoffError{Backoff: backoff}},
		waitStep{snapshot: &panel.Snapshot{}},
	)

	c := New(client, &fakeSession{})
	rec := newRecorder()
	registerAll(c, rec)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	<-client.exhausted

	// Cycle 1 (success): bookkeeping topics only.
	// Cycle 2 (first failure): one full refresh, alarm included.
	// Cycle 3 (second consecutive failure): nothing.
	// Cycle 4 (success): bookkeeping topics only.
	require.Equal(t, 1, rec.count(AlarmTopic()))
	require.Equal(t, 3, rec.count(ConnectionStatusTopic()))
	require.Equal(t, 3, rec.count(NextRefreshTopic()))

	require.NotNil(t, c.Snapshot())
	require.NoError(t, c.LastError())
	require.NoError(t, c.Stop(ctx))
}

// TestCoordinator_ErrorResetsSnapshot asserts a failed cycle forces the
// snapshot to nil and records the classified failure.
func TestCoordinator_ErrorResetsSnapshot(t *testing.T) {
	t.Parallel()

	client := newScriptedClient(
		waitStep{snapshot: &panel.Snapshot{AlarmChanged: true}},
		waitStep{err: &gateway.RetryError{RetryAt: time.Now()}},
	)

	c := New(client, &fakeSession{})
	rec := newRecorder()
	registerAll(c, rec)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	<-client.exhausted

	require.Nil(t, c.Snapshot())

	var retryErr *gateway.RetryError
	require.ErrorAs(t, c.LastError(), &retryErr)

	require.NoError(t, c.Stop(ctx))
}

// TestCoordinator_AuthTriggersReauth asserts a login failure terminates the
// loop and starts the re-authentication flow exactly once.
func TestCoordinator_AuthTriggersReauth(t *testing.T) {
	t.Parallel()

	client := newScriptedClient(waitStep{err: &gateway.AuthError{Reason: "expired"}})
	session := &fakeSession{}

	c := New(client, session)
	rec := newRecorder()
	registerAll(c, rec)

	require.NoError(t, c.Start(context.Background()))

	<-c.Done()

	require.Equal(t, 1, session.reauthCount())
	require.Error(t, c.LastError())
	require.NoError(t, c.Err())
	require.Nil(t, c.Snapshot())
}

// TestCoordinator_UnknownErrorIsFatal asserts unrecognized failures surface
// through Err after terminating the loop.
func TestCoordinator_UnknownErrorIsFatal(t *testing.T) {
	t.Parallel()

	client := newScriptedClient(waitStep{err: errTestBoom})

	c := New(client, &fakeSession{})
	rec := newRecorder()
	registerAll(c, rec)

	require.NoError(t, c.Start(context.Background()))

	<-c.Done()

	require.ErrorIs(t, c.Err(), errTestBoom)
}

// TestCoordinator_StopCancelsWait asserts Stop interrupts an in-flight
// wait-for-update call without further fan-out.
func TestCoordinator_StopCancelsWait(t *testing.T) {
	t.Parallel()

	client := newScriptedClient()

	c := New(client, &fakeSession{})
	rec := newRecorder()
	registerAll(c, rec)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	// The loop is blocked inside WaitForUpdate now.
	<-client.exhausted

	require.NoError(t, c.Stop(ctx))
	require.Equal(t, 0, rec.count(ConnectionStatusTopic()))
}
