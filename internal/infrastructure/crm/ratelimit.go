package crm

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a rolling-window call budget for the CRM API.
// When the window is exhausted it blocks until the window resets plus a
// small buffer, keeping long imports safely under the vendor's limit.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buffer  time.Duration
	calls   []time.Time
	sleepFn func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter allowing limit calls per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buffer:  time.Second,
		calls:   make([]time.Time, 0, limit),
		sleepFn: sleepCtx,
	}
}

// Wait blocks until a call slot is available, then consumes it.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.prune(now)
		if len(r.calls) < r.limit {
			r.calls = append(r.calls, now)
			r.mu.Unlock()
			return nil
		}
		wait := r.calls[0].Add(r.window).Sub(now) + r.buffer
		r.mu.Unlock()
		if err := r.sleepFn(ctx, wait); err != nil {
			return err
		}
	}
}

// Pending returns how many calls are counted in the current window.
func (r *RateLimiter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(time.Now())
	return len(r.calls)
}

func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.calls) && !r.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.calls = r.calls[i:]
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
