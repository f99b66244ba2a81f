// Package ratelimit bounds auth attempts per client with a fixed window.
// Counters live in Redis when configured so all instances share state, and
// fall back to process memory otherwise. Store failures fail open: a broken
// counter must not take registration down with it.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Store counts hits per key within the current window. It returns the count
// after the increment and how long until the window resets.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, reset time.Duration, err error)
}

// Result describes one admission decision.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter admits at most requests hits per key per window.
type Limiter struct {
	store    Store
	requests int
	window   time.Duration
	logger   *slog.Logger
}

func NewLimiter(store Store, requests int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{store: store, requests: requests, window: window, logger: logger}
}

// Allow records one hit for key and decides admission.
func (l *Limiter) Allow(ctx context.Context, key string) Result {
	count, reset, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit store unavailable, failing open", "error", err)
		return Result{Allowed: true}
	}
	if count > int64(l.requests) {
		return Result{Allowed: false, RetryAfter: reset}
	}
	return Result{Allowed: true}
}
