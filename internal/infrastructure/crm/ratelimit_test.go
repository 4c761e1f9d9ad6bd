package crm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Wait(ctx))
	}
	assert.Equal(t, 3, rl.Pending())
}

func TestRateLimiter_BlocksPastLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	var slept time.Duration
	rl.sleepFn = func(_ context.Context, d time.Duration) error {
		slept = d
		// Pretend the window has passed.
		rl.mu.Lock()
		rl.calls = nil
		rl.mu.Unlock()
		return nil
	}
	ctx := context.Background()

	require.NoError(t, rl.Wait(ctx))
	require.NoError(t, rl.Wait(ctx))
	require.NoError(t, rl.Wait(ctx))

	assert.Greater(t, slept, 59*time.Second)
}

func TestRateLimiter_ContextCancelledWhileWaiting(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, rl.Wait(ctx))
	cancel()

	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, rl.Wait(ctx))
	require.NoError(t, rl.Wait(ctx))
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 0, rl.Pending())
	require.NoError(t, rl.Wait(ctx))
}
