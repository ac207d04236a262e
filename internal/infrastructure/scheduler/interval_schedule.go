package scheduler

import (
	"fmt"
	"math/rand"
	"time"
)

// IntervalSchedule schedules a job to run at a fixed interval, with an
// optional random jitter. Jitter staggers identical jobs across worker
// instances so they do not hit the database at the same second.
type IntervalSchedule struct {
	Interval time.Duration

	// Jitter is the maximum random delay added to each tick. Zero means
	// strictly periodic.
	Jitter time.Duration
}

// NewIntervalSchedule creates a strictly periodic schedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{
		Interval: interval,
	}
}

// NewJitteredIntervalSchedule creates a schedule that adds up to jitter of
// random delay to every tick.
func NewJitteredIntervalSchedule(interval, jitter time.Duration) *IntervalSchedule {
	if jitter < 0 {
		jitter = 0
	}
	return &IntervalSchedule{
		Interval: interval,
		Jitter:   jitter,
	}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	next := t.Add(s.Interval)
	if s.Jitter > 0 {
		next = next.Add(time.Duration(rand.Int63n(int64(s.Jitter))))
	}
	return next
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	if s.Jitter > 0 {
		return fmt.Sprintf("@every %s +%s jitter", s.Interval.String(), s.Jitter.String())
	}
	return fmt.Sprintf("@every %s", s.Interval.String())
}
