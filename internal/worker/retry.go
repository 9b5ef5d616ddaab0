package worker

import (
	"math"
	"time"
)

// RetryPolicy is the exponential backoff applied to failed sync tasks.
// Zero fields take the values of DefaultRetryPolicy when handed to NewSyncWorker.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy mirrors the worker section defaults of the config.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  2 * time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if r.MaxRetries == 0 {
		r.MaxRetries = def.MaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = def.InitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = def.MaxDelay
	}
	if r.BackoffFactor <= 1 {
		r.BackoffFactor = def.BackoffFactor
	}
	return r
}

// NextDelay is the wait before retry attempt (1-based): InitialDelay grown by
// BackoffFactor per earlier attempt, capped at MaxDelay when one is set.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := r.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * r.BackoffFactor)
		if r.MaxDelay > 0 && delay >= r.MaxDelay {
			return r.MaxDelay
		}
		if delay <= 0 {
			return time.Duration(math.MaxInt64)
		}
	}
	if r.MaxDelay > 0 && delay > r.MaxDelay {
		return r.MaxDelay
	}
	return delay
}

// Exhausted reports whether attempt has used up the retry budget. Zero MaxRetries
// never runs out.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return r.MaxRetries > 0 && attempt >= r.MaxRetries
}

// NextAttempt returns when a task that just failed attempt should run again, or
// false when it should be given up.
func (r RetryPolicy) NextAttempt(attempt int, now time.Time) (time.Time, bool) {
	if r.Exhausted(attempt) {
		return time.Time{}, false
	}
	return now.Add(r.NextDelay(attempt)), true
}
