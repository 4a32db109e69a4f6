package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestBackoff_AdvanceAndReset verifies doubling, the cap, and reset behavior.
func TestBackoff_AdvanceAndReset(t *testing.T) {
	t.Parallel()

	b := NewBackoff(time.Second, 4*time.Second)
	require.Equal(t, time.Second, b.Current())

	require.Equal(t, time.Second, b.Advance())
	require.Equal(t, 2*time.Second, b.Current())

	require.Equal(t, 2*time.Second, b.Advance())
	require.Equal(t, 4*time.Second, b.Current())

	// Capped.
	require.Equal(t, 4*time.Second, b.Advance())
	require.Equal(t, 4*time.Second, b.Current())

	b.Reset()
	require.Equal(t, time.Second, b.Current())
}

// TestBackoff_Defaults ensures non-positive bounds fall back to defaults.
func TestBackoff_Defaults(t *testing.T) {
	t.Parallel()

	b := NewBackoff(0, 0)
	require.Equal(t, DefaultInitialBackoff, b.Current())
}
