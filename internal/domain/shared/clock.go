package shared

import "time"

// Clock abstracts the source of "now" so that time-sensitive business rules
// (availability checks, coupon windows, streaks) can be tested deterministically.
// Implementations must return a fresh reading on every call; memoizing "now"
// across calls leads to stale availability decisions.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. Test helper.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.At
}
