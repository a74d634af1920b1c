package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/smallbiznis/cashout/internal/clock"
	"github.com/smallbiznis/cashout/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limiterConfig() config.Config {
	return config.Config{
		RateLimit: config.RateLimitConfig{
			Enabled:       true,
			Window:        time.Minute,
			MaxPerIP:      5,
			MaxPerAgent:   30,
			MaxPerAccount: 5,
		},
	}
}

func newTestLimiter(t *testing.T) (*RedemptionLimiter, *clock.FakeClock) {
	t.Helper()
	fakeClock := clock.NewFakeClock(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	cfg := limiterConfig()
	window := NewMemoryWindow(cfg.RateLimit.Window, fakeClock)
	return NewRedemptionLimiterWithWindow(cfg, window), fakeClock
}

func TestRedemptionLimiter_Disabled(t *testing.T) {
	limiter := NewRedemptionLimiter(config.Config{})
	assert.False(t, limiter.Enabled())

	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Check(context.Background(), "203.0.113.9", "agent-001", "acct-1"))
	}
}

func TestRedemptionLimiter_PerIPGate(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	// Distinct accounts, same IP: the sixth within a minute trips the IP gate.
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(ctx, "203.0.113.9", "agent-001", fmt.Sprintf("acct-%d", i)))
	}

	err := limiter.Check(ctx, "203.0.113.9", "agent-001", "zz")
	require.Error(t, err)

	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, GateIP, limitErr.Gate)
	assert.Equal(t, "Too many requests", err.Error())
	assert.Positive(t, limitErr.RetryAfter)
}

func TestRedemptionLimiter_PerAccountGate(t *testing.T) {
	limiter, fakeClock := newTestLimiter(t)
	ctx := context.Background()

	// Distinct IPs and agents, same account.
	ips := []string{"198.51.100.1", "198.51.100.2", "198.51.100.3", "198.51.100.4", "198.51.100.5", "198.51.100.6"}
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(ctx, ips[i], fmt.Sprintf("agent-%d", i), "acct-1"))
	}

	err := limiter.Check(ctx, ips[5], "agent-5", "acct-1")
	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, GateAccount, limitErr.Gate)

	// The window slides: a minute later the account is clean again.
	fakeClock.Advance(time.Minute + time.Second)
	require.NoError(t, limiter.Check(ctx, ips[5], "agent-5", "acct-1"))
}

func TestRedemptionLimiter_EmptyDimensionsSkipped(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	// No account on the request: only IP and agent gates count.
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(ctx, "203.0.113.9", "agent-001", ""))
	}

	err := limiter.Check(ctx, "203.0.113.9", "agent-001", "")
	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, GateIP, limitErr.Gate)
}
