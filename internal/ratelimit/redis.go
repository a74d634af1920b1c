package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// slidingWindowScript evicts counter entries older than the window, counts
// the remainder, and either rejects with the oldest entry's remaining TTL or
// records the new entry and extends the key's expiry to the window length.
// One script run per check keeps the evict-count-insert unit atomic.
const slidingWindowScript = `
local window_ms = tonumber(ARGV[1])
local max = tonumber(ARGV[2])
local member = ARGV[3]

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)
local cutoff = now - window_ms

redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", cutoff)
local count = redis.call("ZCARD", KEYS[1])

if count >= max then
  local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
  local retry = window_ms
  if oldest[2] then
    retry = (tonumber(oldest[2]) + window_ms) - now
  end
  return {0, 0, retry}
end

redis.call("ZADD", KEYS[1], now, member)
redis.call("PEXPIRE", KEYS[1], window_ms)
return {1, max - count - 1, 0}
`

// RedisWindow is the shared keyed counter store used in production.
type RedisWindow struct {
	client *redis.Client
	script *redis.Script
	window time.Duration
}

func NewRedisWindow(client *redis.Client, window time.Duration) *RedisWindow {
	if client == nil {
		return nil
	}
	return &RedisWindow{
		client: client,
		script: redis.NewScript(slidingWindowScript),
		window: window,
	}
}

func (w *RedisWindow) Allow(ctx context.Context, key string, max int) (Decision, error) {
	if w == nil || w.client == nil {
		return Decision{}, errors.New("rate limiter not configured")
	}
	if key == "" {
		return Decision{}, errors.New("rate limiter key is empty")
	}
	if max <= 0 {
		return Decision{}, errors.New("rate limiter max must be positive")
	}

	// The member has to stay unique so simultaneous requests do not collapse
	// into one counter entry.
	member := fmt.Sprintf("%d:%s", time.Now().UnixMicro(), uuid.NewString())

	res, err := w.script.Run(ctx, w.client,
		[]string{key},
		w.window.Milliseconds(),
		max,
		member,
	).Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) < 3 {
		return Decision{}, errors.New("invalid rate limit script response")
	}

	allowed := castToInt(res[0]) == 1
	remaining := int(castToInt(res[1]))
	retryAfter := time.Duration(castToInt(res[2])) * time.Millisecond

	return Decision{
		Allowed:    allowed,
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}, nil
}

func castToInt(v any) int64 {
	switch value := v.(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case string:
		var parsed int64
		_, _ = fmt.Sscan(value, &parsed)
		return parsed
	default:
		return 0
	}
}
