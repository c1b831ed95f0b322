package dbvault

import "time"

// Backoff returns the wait duration before the given retry attempt.
type Backoff func(attempt int) time.Duration

// Exponential creates a capped exponential backoff function; attempt 1 waits
// base, each further attempt multiplies by factor up to max.
func Exponential(base time.Duration, factor float64, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := float64(base)
		for i := 1; i < attempt; i++ {
			d *= factor
			if time.Duration(d) >= max {
				return max
			}
		}
		delay := time.Duration(d)
		if delay > max {
			return max
		}
		if delay < base {
			return base
		}
		return delay
	}
}
