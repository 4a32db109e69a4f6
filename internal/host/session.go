package host

import (
	"context"
	"sync"

	"github.com/oshokin/pulse-sync/internal/logger"
)

// Session is the owning lifetime for background work: it reports host
// shutdown and carries the re-authentication flow. It stands in for the
// host platform's configuration-entry lifecycle.
type Session struct {
	// mu protects the fields below.
	mu sync.Mutex
	// stopping is set once the host begins shutting down.
	stopping bool
	// onReauth is invoked when a component requests re-authentication.
	onReauth func(ctx context.Context)
}

// NewSession creates a session with an optional re-authentication hook.
func NewSession(onReauth func(ctx context.Context)) *Session {
	return &Session{
		onReauth: onReauth,
	}
}

// RequestReauth starts the host's re-authentication flow.
func (s *Session) RequestReauth(ctx context.Context) {
	s.mu.Lock()
	hook := s.onReauth
	s.mu.Unlock()

	logger.Warn(ctx, "Re-authentication requested")

	if hook != nil {
		hook(ctx)
	}
}

// RequestStop marks the session as shutting down.
func (s *Session) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopping = true
}

// Stopping reports whether the host is shutting down.
func (s *Session) Stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stopping
}
