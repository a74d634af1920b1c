package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/cashout/internal/config"
)

const (
	GateIP      = "ip"
	GateAgent   = "agent"
	GateAccount = "account"

	keyRedeemIP      = "redeem:ip:%s"
	keyRedeemAgent   = "redeem:agent:%s"
	keyRedeemAccount = "redeem:account:%s"
)

// RedemptionLimiter guards the redemption path along three independent
// dimensions. Every gate is evaluated on its own counter key; any rejection
// rejects the whole request.
type RedemptionLimiter struct {
	enabled bool
	window  Window

	maxPerIP      int
	maxPerAgent   int
	maxPerAccount int
}

// NewRedemptionLimiter wires the limiter against redis. Returns a disabled
// limiter when rate limiting is turned off.
func NewRedemptionLimiter(cfg config.Config) *RedemptionLimiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return &RedemptionLimiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(limitCfg.RedisAddr),
		Password: limitCfg.RedisPassword,
		DB:       limitCfg.RedisDB,
	})

	return NewRedemptionLimiterWithWindow(cfg, NewRedisWindow(client, limitCfg.Window))
}

// NewRedemptionLimiterWithWindow builds the limiter over an explicit counter
// store. Used by tests and single-node deployments.
func NewRedemptionLimiterWithWindow(cfg config.Config, window Window) *RedemptionLimiter {
	return &RedemptionLimiter{
		enabled:       cfg.RateLimit.Enabled,
		window:        window,
		maxPerIP:      cfg.RateLimit.MaxPerIP,
		maxPerAgent:   cfg.RateLimit.MaxPerAgent,
		maxPerAccount: cfg.RateLimit.MaxPerAccount,
	}
}

func (l *RedemptionLimiter) Enabled() bool {
	return l != nil && l.enabled && l.window != nil
}

// Check runs the three gates. Empty dimensions are skipped; all present
// gates must pass.
func (l *RedemptionLimiter) Check(ctx context.Context, ip, agentID, accountID string) error {
	if !l.Enabled() {
		return nil
	}

	gates := []struct {
		name string
		key  string
		max  int
	}{
		{GateIP, formatKey(keyRedeemIP, ip), l.maxPerIP},
		{GateAgent, formatKey(keyRedeemAgent, agentID), l.maxPerAgent},
		{GateAccount, formatKey(keyRedeemAccount, accountID), l.maxPerAccount},
	}

	for _, gate := range gates {
		if gate.key == "" {
			continue
		}
		decision, err := l.window.Allow(ctx, gate.key, gate.max)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return &LimitExceededError{
				Gate:       gate.name,
				RetryAfter: decision.RetryAfter,
			}
		}
	}

	return nil
}

func formatKey(pattern, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return fmt.Sprintf(pattern, value)
}
