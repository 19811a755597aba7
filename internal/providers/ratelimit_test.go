package providers

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	l := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if wait := l.tryAcquire(); wait != 0 {
			t.Fatalf("call %d should be allowed, got wait %v", i+1, wait)
		}
	}

	if wait := l.tryAcquire(); wait == 0 {
		t.Error("call over the limit should have to wait")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	now := time.Now()
	l := NewRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	l.tryAcquire()
	l.tryAcquire()
	if wait := l.tryAcquire(); wait == 0 {
		t.Fatal("third call inside the window should wait")
	}

	// Slide past the window; old calls must be pruned.
	now = now.Add(61 * time.Second)
	if wait := l.tryAcquire(); wait != 0 {
		t.Errorf("call after window expired should be allowed, got wait %v", wait)
	}
	if l.Pending() != 1 {
		t.Errorf("expected 1 pending call after pruning, got %d", l.Pending())
	}
}

func TestRateLimiterWaitHonorsCancel(t *testing.T) {
	l := NewRateLimiter(1, time.Hour)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait should pass: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("expected context error when waiting on a full window")
	}
}

func TestRetryDelayBounds(t *testing.T) {
	base := 2 * time.Second
	for attempt := 0; attempt < 3; attempt++ {
		min := time.Duration(float64(base) * float64(int(1)<<attempt))
		max := min + time.Second

		for i := 0; i < 20; i++ {
			d := RetryDelay(base, attempt)
			if d < min || d > max {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, d, min, max)
			}
		}
	}
}
