// Package retry decides whether a failed operation is worth another
// attempt and how long to wait before it.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy is an exponential backoff schedule. Policies are chosen per call
// site, never globally.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// Default is the standard upload policy.
func Default() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		Multiplier:   2,
		MaxDelay:     60 * time.Second,
	}
}

// Fast retries more often with shorter waits, for lower-stakes work such as
// payload prefetches during sync.
func Fast() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   1.5,
		MaxDelay:     30 * time.Second,
	}
}

// Delay returns the wait before the retry following the given zero-based
// attempt: min(MaxDelay, InitialDelay * Multiplier^attempt). Randomization
// is disabled so the schedule is exact.
func (p Policy) Delay(attempt int) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxDelay,
	}
	b.Reset()

	d := b.NextBackOff()
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// Exhausted reports whether the given number of completed attempts used up
// the policy's budget.
func (p Policy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}
