package gateway

import (
	"context"
	"time"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
)

// Client is the remote security-panel service consumed by the coordinator
// and the alarm state machine. Implementations own connection management and
// authentication; callers only ever see the typed failure taxonomy defined
// in this package.
type Client interface {
	// WaitForUpdate blocks until the remote service reports a change and
	// returns the per-cycle diff snapshot. Failures are one of *AuthError,
	// *RetryError, *BackoffError or the context's cancellation error.
	// Retry pacing is the client's job: after a retryable failure the next
	// call blocks until the deadline or backoff interval has passed.
	WaitForUpdate(ctx context.Context) (*panel.Snapshot, error)

	// Arm requests arming in the given mode, optionally bypassing open or
	// tripped zones. The boolean reports whether the panel accepted the
	// command; ordinary rejection is not an error.
	Arm(ctx context.Context, mode panel.ArmMode, force bool) (bool, error)

	// Disarm requests disarming. Semantics match Arm.
	Disarm(ctx context.Context) (bool, error)

	// Status returns the panel status as of the latest update.
	Status() panel.Status

	// Zones returns the site's zones as of the latest update.
	Zones() []panel.Zone

	// Site returns the site metadata (identity, manufacturer, model).
	Site() panel.Site

	// LastUpdate returns when the panel state was last refreshed.
	LastUpdate() time.Time

	// Online reports whether the gateway is currently reachable.
	Online() bool

	// Close releases the underlying connection.
	Close() error
}
