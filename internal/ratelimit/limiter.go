package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a single window check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Window counts requests per key over a sliding window and records the
// request when it is admitted. Evict-count-insert is one logical unit per
// key on every implementation.
type Window interface {
	Allow(ctx context.Context, key string, max int) (Decision, error)
}

// LimitExceededError is returned when a gate rejects a request. The message
// is part of the external contract.
type LimitExceededError struct {
	Gate       string
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return "Too many requests"
}
