// Package ttl provides the time source and expiry arithmetic used by the store.
// Expiry is always measured as elapsed time between two readings of the same
// Clock, so adjustments to the wall clock never expire or revive an entry.
package ttl

import (
	"time"
)

// Clock is a source of monotonic time readings
type Clock interface {
	Now() time.Time
}

// SystemClock reads the process clock. The returned times carry Go's
// monotonic reading, which Time.Sub prefers over the wall clock.
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Default is the clock used when none is configured
var Default Clock = SystemClock{}

// Elapsed returns how long ago createdAt was, as seen from now
func Elapsed(createdAt, now time.Time) time.Duration {
	return now.Sub(createdAt)
}

// Expired reports whether an entry created at createdAt with the given ttl
// has expired at now. An entry whose elapsed time equals its ttl is expired.
func Expired(createdAt time.Time, ttl time.Duration, now time.Time) bool {
	return Elapsed(createdAt, now) >= ttl
}

// Remaining returns the time left before expiry, never negative
func Remaining(createdAt time.Time, ttl time.Duration, now time.Time) time.Duration {
	left := ttl - Elapsed(createdAt, now)
	if left < 0 {
		return 0
	}
	return left
}

// FromSeconds converts an integer second count into a duration
func FromSeconds(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}
