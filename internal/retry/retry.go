// Package retry implements the linear backoff helper shared by the job
// queue and notification queue dispatch loops (spec.md §4.8, §4.9), grounded
// on the teacher's infrastructure/resilience.RetryConfig/Retry shape
// (exponential backoff with jitter) but reimplemented standalone with a
// pluggable strategy function so the linear default and an exponential
// extension can share one call site, per spec.md §9's open question on
// back-off strategy ("code uses a fixed delay; exponential is implied...
// but unimplemented").
package retry

import "time"

// Strategy computes the delay before the next attempt, given the zero-based
// attempt number that just failed (0 for the first failure).
type Strategy func(attempt int, base time.Duration) time.Duration

// Linear is the default strategy spec.md §4.8 specifies: delay grows by one
// base unit per attempt.
func Linear(attempt int, base time.Duration) time.Duration {
	return time.Duration(attempt+1) * base
}

// Exponential is the drop-in extension spec.md §9 flags as implied but
// unimplemented in the source: delay doubles per attempt.
func Exponential(attempt int, base time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Delay computes how long to wait before retrying, given the base delay, a
// strategy (Linear is used if nil), and the zero-based number of the
// attempt that just failed (0 for the first failure).
func Delay(strategy Strategy, base time.Duration, attempt int) time.Duration {
	if strategy == nil {
		strategy = Linear
	}
	if base <= 0 {
		base = time.Second
	}
	return strategy(attempt, base)
}
