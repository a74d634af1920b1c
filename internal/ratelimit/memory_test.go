package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/cashout/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryWindow_AllowsUpToMax(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	window := NewMemoryWindow(time.Minute, fakeClock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision, err := window.Allow(ctx, "redeem:ip:203.0.113.9", 5)
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "request %d", i+1)
		assert.Equal(t, 4-i, decision.Remaining)
	}

	decision, err := window.Allow(ctx, "redeem:ip:203.0.113.9", 5)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Zero(t, decision.Remaining)
	assert.Equal(t, time.Minute, decision.RetryAfter)
}

func TestMemoryWindow_SlidesWithTime(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	window := NewMemoryWindow(time.Minute, fakeClock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := window.Allow(ctx, "redeem:agent:agent-001", 5)
		require.NoError(t, err)
		fakeClock.Advance(10 * time.Second)
	}

	// 50s in: the first entry is 50s old, still inside the window.
	decision, err := window.Allow(ctx, "redeem:agent:agent-001", 5)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 10*time.Second, decision.RetryAfter)

	// Past the first entry's expiry, one slot frees up.
	fakeClock.Advance(11 * time.Second)
	decision, err = window.Allow(ctx, "redeem:agent:agent-001", 5)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestMemoryWindow_RejectsBadArguments(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	window := NewMemoryWindow(time.Minute, fakeClock)
	ctx := context.Background()

	_, err := window.Allow(ctx, "", 5)
	assert.Error(t, err)

	_, err = window.Allow(ctx, "redeem:ip:203.0.113.9", 0)
	assert.Error(t, err)

	_, err = window.Allow(ctx, "redeem:ip:203.0.113.9", -1)
	assert.Error(t, err)
}

func TestMemoryWindow_KeysAreIndependent(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	window := NewMemoryWindow(time.Minute, fakeClock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := window.Allow(ctx, "redeem:account:a", 3)
		require.NoError(t, err)
	}

	blocked, err := window.Allow(ctx, "redeem:account:a", 3)
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	other, err := window.Allow(ctx, "redeem:account:b", 3)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}
