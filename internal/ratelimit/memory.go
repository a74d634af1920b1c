package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smallbiznis/cashout/internal/clock"
)

// MemoryWindow is a single-node Window used by tests and local development.
// Semantics match RedisWindow: evict, count, reject with the oldest entry's
// remaining time-to-live, or record.
type MemoryWindow struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	window  time.Duration
	clock   clock.Clock
}

func NewMemoryWindow(window time.Duration, clk clock.Clock) *MemoryWindow {
	return &MemoryWindow{
		entries: make(map[string][]time.Time),
		window:  window,
		clock:   clk,
	}
}

func (w *MemoryWindow) Allow(_ context.Context, key string, max int) (Decision, error) {
	if key == "" {
		return Decision{}, errors.New("rate limiter key is empty")
	}
	if max <= 0 {
		return Decision{}, errors.New("rate limiter max must be positive")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	cutoff := now.Add(-w.window)

	kept := w.entries[key][:0]
	for _, entry := range w.entries[key] {
		if entry.After(cutoff) {
			kept = append(kept, entry)
		}
	}

	if len(kept) >= max {
		w.entries[key] = kept
		retryAfter := kept[0].Add(w.window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}

	w.entries[key] = append(kept, now)
	return Decision{
		Allowed:   true,
		Remaining: max - len(kept) - 1,
	}, nil
}
