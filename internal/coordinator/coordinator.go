package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
	"github.com/oshokin/pulse-sync/internal/gateway"
	"github.com/oshokin/pulse-sync/internal/logger"
)

// Session is the owning host session the coordinator's background task is
// bound to. It provides the re-authentication flow and shutdown awareness.
type Session interface {
	// RequestReauth starts the host's re-authentication flow.
	RequestReauth(ctx context.Context)
	// Stopping reports whether the host is shutting down.
	Stopping() bool
}

// ErrNotReady is returned by Start when no owning session exists yet.
var ErrNotReady = errors.New("coordinator has no owning session")

// Coordinator owns the single background task that waits for remote change
// notifications, classifies failures, commits the per-cycle snapshot and
// fans changes out to per-topic listeners.
type Coordinator struct {
	// client is the remote panel service.
	client gateway.Client
	// session is the owning host session.
	session Session
	// registry holds the per-topic listener slots.
	registry *ListenerRegistry

	// mu protects the snapshot and error bookkeeping below.
	mu sync.RWMutex
	// snapshot is the last committed diff, nil until the first successful
	// cycle and forcibly reset to nil for every failed cycle.
	snapshot *panel.Snapshot
	// lastErr is the last classified transient failure, nil after success.
	lastErr error
	// fatalErr is set when the loop terminates on an unrecognized failure.
	fatalErr error
	// lastCycleOK tracks whether the previous cycle succeeded; it gates the
	// single stale-data fan-out on the first consecutive failure.
	lastCycleOK bool

	// taskMu protects the background task handle.
	taskMu sync.Mutex
	// cancel stops the background task.
	cancel context.CancelFunc
	// done is closed when the background task exits; nil when not started.
	done chan struct{}
}

// New creates a coordinator for the provided gateway client bound to the
// owning session.
func New(client gateway.Client, session Session) *Coordinator {
	return &Coordinator{
		client:   client,
		session:  session,
		registry: NewListenerRegistry(),
		// The very first failure must notify observers even though no
		// snapshot was ever committed.
		lastCycleOK: true,
	}
}

// Gateway returns the remote panel service the coordinator polls.
func (c *Coordinator) Gateway() gateway.Client {
	return c.client
}

// Register installs a listener for the topic, replacing any existing one.
// Every topic that can appear in a snapshot must be registered before Start.
func (c *Coordinator) Register(topic Topic, callback Callback) func() {
	return c.registry.Register(topic, callback)
}

// Snapshot returns a copy of the last committed diff, nil when there is no
// data yet or the last cycle failed.
func (c *Coordinator) Snapshot() *panel.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snapshot.Clone()
}

// LastError returns the last classified transient failure, nil after a
// successful cycle.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastErr
}

// Err returns the unrecoverable failure that terminated the loop, if any.
func (c *Coordinator) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.fatalErr
}

// Done returns a channel closed when the background task exits.
// It returns a closed channel when the coordinator was never started.
func (c *Coordinator) Done() <-chan struct{} {
	c.taskMu.Lock()
	defer c.taskMu.Unlock()

	if c.done == nil {
		closed := make(chan struct{})
		close(closed)

		return closed
	}

	return c.done
}

// Start spawns the background wait loop bound to the provided context.
// It is idempotent: a second call while the task handle exists is a no-op.
// It fails with ErrNotReady when no owning session exists.
func (c *Coordinator) Start(ctx context.Context) error {
	c.taskMu.Lock()
	defer c.taskMu.Unlock()

	if c.done != nil {
		return nil
	}

	if c.session == nil {
		return ErrNotReady
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.waitLoop(loopCtx, c.done)

	return nil
}

// Stop cancels the background task, awaits its termination and clears the
// task handle. Safe to call when never started.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.taskMu.Lock()
	defer c.taskMu.Unlock()

	if c.done == nil {
		return nil
	}

	c.cancel()

	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.cancel = nil
	c.done = nil

	return nil
}

// waitLoop is the background task body: strictly sequential, at most one
// in-flight wait-for-update call at any time.
func (c *Coordinator) waitLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil && !c.session.Stopping() {
		logger.Debug(ctx, "Coordinator waiting for updates")

		snapshot, err := c.client.WaitForUpdate(ctx)
		if err == nil {
			c.commit(snapshot)
			c.registry.NotifyAll(ctx, snapshot)
			logger.Debug(ctx, "Coordinator received update notification")

			continue
		}

		switch Classify(err) {
		case ClassFatalAuth:
			logger.ErrorKV(ctx, "Gateway login failed, starting re-authentication", "error", err)
			c.recordFailure(err)
			c.session.RequestReauth(ctx)

			return
		case ClassRetryDeadline:
			var retryErr *gateway.RetryError
			if errors.As(err, &retryErr) && !retryErr.RetryAt.IsZero() {
				logger.DebugKV(ctx, "Coordinator received retryable error",
					"retry_at", retryErr.RetryAt.Local())
			}

			c.recordTransient(ctx, err)
		case ClassRetryBackoff:
			var backoffErr *gateway.BackoffError
			if errors.As(err, &backoffErr) {
				logger.DebugKV(ctx, "Coordinator received backoff error",
					"backoff", backoffErr.Backoff.Current())
			}

			c.recordTransient(ctx, err)
		case ClassCancelled:
			logger.Debug(ctx, "Coordinator received cancellation")

			return
		case ClassUnknown:
			logger.ErrorKV(ctx, "Coordinator received unknown error, exiting", "error", err)
			c.setFatal(err)

			return
		}
	}
}

// commit stores a successful cycle's snapshot and clears error bookkeeping.
// The snapshot is fully committed before any fan-out runs.
func (c *Coordinator) commit(snapshot *panel.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = snapshot
	c.lastErr = nil
	c.lastCycleOK = true
}

// recordTransient stores a retryable failure, resets the snapshot and, on the
// first consecutive failure only, fans out a full refresh so observers learn
// the data is stale. Subsequent consecutive failures skip the fan-out.
func (c *Coordinator) recordTransient(ctx context.Context, err error) {
	c.mu.Lock()

	c.lastErr = err
	c.snapshot = nil
	first := c.lastCycleOK
	c.lastCycleOK = false

	c.mu.Unlock()

	if first {
		c.registry.NotifyAll(ctx, nil)
	}
}

// recordFailure stores a terminal failure without fan-out.
func (c *Coordinator) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = err
	c.snapshot = nil
	c.lastCycleOK = false
}

// setFatal records the unrecoverable failure surfaced through Err.
func (c *Coordinator) setFatal(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = err
	c.fatalErr = err
	c.snapshot = nil
	c.lastCycleOK = false
}
