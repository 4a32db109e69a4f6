package coordinator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/pulse-sync/internal/gateway"
)

var errTestBoom = errors.New("boom")

// TestClassify covers the full failure taxonomy, including wrapped errors.
func TestClassify(t *testing.T) {
	t.Parallel()

	backoff := gateway.NewBackoff(time.Second, time.Minute)

	cases := map[string]struct {
		err  error
		want Class
	}{
		"auth": {
			err:  &gateway.AuthError{Reason: "credentials rejected"},
			want: ClassFatalAuth,
		},
		"retry with deadline": {
			err:  &gateway.RetryError{RetryAt: time.Now().Add(time.Minute)},
			want: ClassRetryDeadline,
		},
		"retry with backoff": {
			err:  &gateway.BackoffError{Backoff: backoff},
			want: ClassRetryBackoff,
		},
		"cancelled": {
			err:  context.Canceled,
			want: ClassCancelled,
		},
		"wrapped cancelled": {
			err:  fmt.Errorf("read updates: %w", context.Canceled),
			want: ClassCancelled,
		},
		"wrapped auth": {
			err:  fmt.Errorf("handshake: %w", &gateway.AuthError{}),
			want: ClassFatalAuth,
		},
		"unknown": {
			err:  errTestBoom,
			want: ClassUnknown,
		},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

// TestClassString ensures every class has a log-friendly name.
func TestClassString(t *testing.T) {
	t.Parallel()

	for _, c := range []Class{ClassFatalAuth, ClassRetryDeadline, ClassRetryBackoff, ClassCancelled, ClassUnknown} {
		require.NotEqual(t, "invalid", c.String())
	}

	require.Equal(t, "invalid", Class(42).String())
}
