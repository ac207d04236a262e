package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression_Valid(t *testing.T) {
	tests := []struct {
		expr        string
		wantMinutes []int
	}{
		{"* * * * *", nil}, // wildcard, not asserted below
		{"0 * * * *", []int{0}},
		{"*/15 * * * *", []int{0, 15, 30, 45}},
		{"5,35 * * * *", []int{5, 35}},
		{"10-13 * * * *", []int{10, 11, 12, 13}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			ce, err := ParseCronExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, ce.String())
			if tt.wantMinutes != nil {
				assert.Equal(t, tt.wantMinutes, ce.minutes)
			}
		})
	}
}

func TestParseCronExpression_Invalid(t *testing.T) {
	tests := []string{
		"",
		"* * * *",        // 4 fields
		"* * * * * *",    // 6 fields
		"60 * * * *",     // minute out of range
		"* 24 * * *",     // hour out of range
		"*/0 * * * *",    // zero step
		"abc * * * *",    // not a number
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseCronExpression(expr)
			assert.Error(t, err)
		})
	}
}

func TestCronExpression_NextHourly(t *testing.T) {
	ce := MustParseCronExpression(EveryHour)

	from := time.Date(2026, 9, 7, 10, 25, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC), ce.Next(from))

	// Exactly on the hour: the next firing is the following hour.
	onTheHour := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC), ce.Next(onTheHour))
}

func TestCronExpression_NextDailyAt8(t *testing.T) {
	ce := MustParseCronExpression(EveryDay8AM)

	beforeEight := time.Date(2026, 9, 7, 6, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC), ce.Next(beforeEight))

	afterEight := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 8, 8, 0, 0, 0, time.UTC), ce.Next(afterEight))
}

func TestCronExpression_NextEveryFiveMinutes(t *testing.T) {
	ce := MustParseCronExpression(Every5Minutes)

	from := time.Date(2026, 9, 7, 10, 3, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 7, 10, 5, 0, 0, time.UTC), ce.Next(from))
}

func TestCronExpression_WeekdayFilter(t *testing.T) {
	// Mondays at noon. Sep 7 2026 is a Monday.
	ce := MustParseCronExpression("0 12 * * 1")

	saturday := time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC), ce.Next(saturday))
}

func TestMustParseCronExpression_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() {
		MustParseCronExpression("not a cron")
	})
}

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(30 * time.Second)

	from := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, from.Add(30*time.Second), s.Next(from))
	assert.Equal(t, "@every 30s", s.String())
}

func TestJitteredIntervalSchedule(t *testing.T) {
	s := NewJitteredIntervalSchedule(30*time.Second, 5*time.Second)
	from := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)

	floor := from.Add(30 * time.Second)
	ceiling := floor.Add(5 * time.Second)
	for i := 0; i < 50; i++ {
		next := s.Next(from)
		assert.False(t, next.Before(floor))
		assert.True(t, next.Before(ceiling))
	}

	assert.Equal(t, "@every 30s +5s jitter", s.String())

	// Negative jitter collapses to a plain interval.
	plain := NewJitteredIntervalSchedule(time.Minute, -time.Second)
	assert.Equal(t, from.Add(time.Minute), plain.Next(from))
}
