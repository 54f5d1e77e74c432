package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurstThenThrottles(t *testing.T) {
	rl := NewRateLimiter(2)
	require.True(t, rl.Allow())
	require.True(t, rl.Allow())
	// Burst exhausted; immediate next call should not be admitted.
	require.False(t, rl.Allow())
}

func TestRateLimiterWaitWithTimeoutExpires(t *testing.T) {
	rl := NewRateLimiter(1)
	require.True(t, rl.Allow())

	ctx := context.Background()
	err := rl.WaitWithTimeout(ctx, 10*time.Millisecond)
	require.Error(t, err)
}

func TestRateLimiterSetRate(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.SetRate(5)
	require.True(t, rl.Allow())
}
