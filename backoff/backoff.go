// Package backoff computes the pause a task queue takes between failed
// attempts of the same call. Strategies are stateless and safe for
// concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before retry attempt n. Attempt 1 is the
// first retry after the initial failure.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Func adapts a plain function to Strategy.
type Func func(attempt int) time.Duration

// Delay calls f.
func (f Func) Delay(attempt int) time.Duration { return f(attempt) }

// None retries immediately.
var None Strategy = Func(func(int) time.Duration { return 0 })

// Constant waits the same interval before every retry.
func Constant(interval time.Duration) Strategy {
	return Func(func(int) time.Duration { return interval })
}

// Exponential waits initial, then doubles per attempt up to limit.
// A zero limit means no cap.
type Exponential struct {
	Initial time.Duration
	Limit   time.Duration
	// Jitter draws the delay uniformly from [0, computed delay].
	Jitter bool
}

// Delay returns min(Initial * 2^(attempt-1), Limit), jittered if enabled.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(e.Initial) * math.Pow(2, float64(attempt-1))
	if e.Limit > 0 && d > float64(e.Limit) {
		d = float64(e.Limit)
	}
	if e.Jitter {
		d *= rand.Float64() //nolint:gosec // jitter does not need crypto rand
	}
	return time.Duration(d)
}

// Default is jittered exponential backoff from one second up to a minute.
func Default() Strategy {
	return Exponential{Initial: time.Second, Limit: time.Minute, Jitter: true}
}
