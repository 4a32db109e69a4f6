package gateway

import (
	"sync"
	"time"
)

const (
	// DefaultInitialBackoff is the first reconnect delay after a failure.
	DefaultInitialBackoff = 1 * time.Second
	// DefaultMaxBackoff caps the reconnect delay growth.
	DefaultMaxBackoff = 5 * time.Minute
)

// Backoff is an exponential backoff counter shared between a client and its
// callers for reporting. The counter doubles on every Advance up to the
// configured maximum and resets to the initial interval on success.
type Backoff struct {
	// mu protects the current interval.
	mu sync.Mutex
	// initial is the interval after a reset.
	initial time.Duration
	// max caps the interval growth.
	max time.Duration
	// current is the interval to wait before the next attempt.
	current time.Duration
}

// NewBackoff creates a counter with the provided bounds.
// Non-positive values fall back to the defaults.
func NewBackoff(initial, maximum time.Duration) *Backoff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}

	if maximum <= 0 {
		maximum = DefaultMaxBackoff
	}

	return &Backoff{
		initial: initial,
		max:     maximum,
		current: initial,
	}
}

// Current returns the interval to wait before the next attempt.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current
}

// Advance doubles the interval up to the maximum and returns the interval
// that applied to the attempt that just failed.
func (b *Backoff) Advance() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	applied := b.current

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	return applied
}

// Reset restores the initial interval after a successful attempt.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.initial
}
