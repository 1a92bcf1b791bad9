package task

import (
	"math/rand/v2"
	"time"
)

// BackoffPolicy computes the delay before the next attempt after n failed
// attempts: Base * 2^n plus a jitter drawn uniformly from [0, MaxJitter).
type BackoffPolicy struct {
	Base      time.Duration
	MaxJitter time.Duration

	// jitter returns a value in [0, n). Defaults to math/rand/v2.
	jitter func(n int64) int64
}

// DefaultBackoffPolicy returns the production policy: 1s base, up to 1s jitter.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base:      time.Second,
		MaxJitter: time.Second,
	}
}

// Delay returns the wait before attempt failed+1.
func (p BackoffPolicy) Delay(failed int) time.Duration {
	if failed < 0 {
		failed = 0
	}
	d := p.Base << uint(failed)
	if p.MaxJitter > 0 {
		jitter := p.jitter
		if jitter == nil {
			jitter = rand.Int64N
		}
		d += time.Duration(jitter(int64(p.MaxJitter)))
	}
	return d
}
