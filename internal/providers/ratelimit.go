package providers

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a sliding-window call budget for a single
// provider, e.g. 5 image generations per 60 seconds. Callers block in
// Wait until a slot frees up or their context is cancelled.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Wait blocks until a call slot is available, then claims it.
func (l *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := l.tryAcquire()
		if wait == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// tryAcquire claims a slot if one is free, otherwise returns how long
// until the oldest in-window call expires.
func (l *RateLimiter) tryAcquire() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Prune calls that slid out of the window
	kept := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.calls = kept

	if len(l.calls) < l.limit {
		l.calls = append(l.calls, now)
		return 0
	}

	return l.calls[0].Sub(cutoff)
}

// Pending reports how many calls currently count against the window.
func (l *RateLimiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	n := 0
	for _, t := range l.calls {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
