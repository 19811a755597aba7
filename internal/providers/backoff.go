package providers

import (
	"math"
	"math/rand"
	"time"
)

// RetryDelay computes the backoff before retry number attempt (0-based):
// base * 2^attempt plus up to one second of jitter so parallel jobs
// hitting the same provider don't retry in lockstep.
func RetryDelay(base time.Duration, attempt int) time.Duration {
	delay := float64(base) * math.Pow(2, float64(attempt))
	jitter := rand.Float64() * float64(time.Second)
	return time.Duration(delay + jitter)
}
