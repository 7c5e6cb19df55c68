package worker

import "time"

// RetryPolicy controls how a failed sheet sync is rescheduled. Zero fields take
// the defaults below.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

var defaultRetryPolicy = RetryPolicy{
	MaxRetries:    5,
	InitialDelay:  2 * time.Second,
	MaxDelay:      time.Minute,
	BackoffFactor: 2,
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = defaultRetryPolicy.MaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = defaultRetryPolicy.InitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = defaultRetryPolicy.MaxDelay
	}
	if r.BackoffFactor < 1 {
		r.BackoffFactor = defaultRetryPolicy.BackoffFactor
	}
	if r.InitialDelay > r.MaxDelay {
		r.InitialDelay = r.MaxDelay
	}
	return r
}

// Exhausted reports whether a task on its attempt-th failure goes to the dead-letter list.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.withDefaults().MaxRetries
}

// NextDelay is InitialDelay * BackoffFactor^(attempt-1), capped at MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.withDefaults()

	delay := r.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * r.BackoffFactor)
		if delay <= 0 || delay >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	return delay
}
