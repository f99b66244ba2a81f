// Package retry provides a bounded retry primitive with exponential backoff,
// cap, and jitter for outbound upstream calls.
//
// Only two failure classes are retried: upstream statuses in the fixed
// retryable set (rate limiting, server errors) and network-level failures.
// Any other error propagates on the first occurrence so callers keep full
// classification ability; on exhaustion the last observed error is returned
// unmodified, never wrapped.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/url"
	"time"

	"keeply/pkg/platform/httputil"
)

const (
	// maxDelay caps the exponential curve.
	maxDelay = 2 * time.Second
	// maxJitter bounds the uniform random jitter added per attempt.
	maxJitter = 60 * time.Millisecond
)

// SleepFunc blocks for d or until ctx is done. Injectable so tests can count
// sleeps and run instantly.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc. It aborts without sleeping when ctx is
// already cancelled, and reports cancellation if it arrives mid-wait.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration

	// Rand supplies jitter; nil uses the package-level source. Injectable
	// so tests can pin delays.
	Rand *rand.Rand
	// Sleep defaults to Sleep.
	Sleep SleepFunc
}

func (p Policy) sleep() SleepFunc {
	if p.Sleep != nil {
		return p.Sleep
	}
	return Sleep
}

func (p Policy) jitter() time.Duration {
	if p.Rand != nil {
		return time.Duration(p.Rand.Int63n(int64(maxJitter)))
	}
	return time.Duration(rand.Int63n(int64(maxJitter)))
}

// Do runs fn up to p.MaxAttempts times, doubling the delay between attempts
// up to the cap, with uniform jitter added per attempt.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	delay := p.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !Retryable(err) || attempt == p.MaxAttempts {
			return zero, err
		}
		lastErr = err
		if serr := p.sleep()(ctx, delay+p.jitter()); serr != nil {
			return zero, serr
		}
		delay = min(delay*2, maxDelay)
	}
	// Unreachable with MaxAttempts >= 1; kept so a zero policy fails loudly.
	if lastErr == nil {
		lastErr = errors.New("retry: no attempts configured")
	}
	return zero, lastErr
}

// Retryable reports whether err belongs to a transient class: an upstream
// status in the retryable set, or a network-level transport failure.
// Everything else is final. Caller cancellation is handled by the sleep
// between attempts, which aborts with the context error.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *httputil.StatusError
	if errors.As(err, &se) {
		return httputil.IsRetryableStatus(se.Status)
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
