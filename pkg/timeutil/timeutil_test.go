package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	riga, err := time.LoadLocation("Europe/Riga")
	require.NoError(t, err)

	// 23:30 UTC on the 7th is already the 8th in Riga (UTC+3 in summer).
	instant := time.Date(2026, 6, 7, 23, 30, 0, 0, time.UTC)

	utcStart := StartOfDay(instant, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC), utcStart)

	rigaStart := StartOfDay(instant, riga)
	assert.Equal(t, time.Date(2026, 6, 8, 0, 0, 0, 0, riga), rigaStart)
}

func TestStartOfDay_NilLocationDefaultsToUTC(t *testing.T) {
	instant := time.Date(2026, 6, 7, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC), StartOfDay(instant, nil))
}

func TestEndOfDay(t *testing.T) {
	instant := time.Date(2026, 6, 7, 10, 0, 0, 0, time.UTC)
	end := EndOfDay(instant, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 7, 23, 59, 59, 999999999, time.UTC), end)
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
	}{
		{"monday", time.Date(2026, 6, 8, 14, 0, 0, 0, time.UTC)},
		{"wednesday", time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2026, 6, 14, 23, 0, 0, 0, time.UTC)},
	}

	wantMonday := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, wantMonday, StartOfWeek(tt.day, time.UTC))
		})
	}
}

func TestEndOfWeek(t *testing.T) {
	wednesday := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	want := time.Date(2026, 6, 14, 23, 59, 59, 999999999, time.UTC)
	assert.Equal(t, want, EndOfWeek(wednesday, time.UTC))
}

func TestAtHour(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 22:00 UTC on the 7th is 07:00 on the 8th in Tokyo; the release hour
	// lands on the Tokyo calendar day.
	instant := time.Date(2026, 6, 7, 22, 0, 0, 0, time.UTC)
	got := AtHour(instant, 8, tokyo)
	assert.Equal(t, time.Date(2026, 6, 8, 8, 0, 0, 0, tokyo), got)
}

func TestIsSameDay(t *testing.T) {
	riga, err := time.LoadLocation("Europe/Riga")
	require.NoError(t, err)

	a := time.Date(2026, 6, 7, 23, 30, 0, 0, time.UTC)
	b := time.Date(2026, 6, 8, 1, 0, 0, 0, time.UTC)

	assert.False(t, IsSameDay(a, b, time.UTC))
	assert.True(t, IsSameDay(a, b, riga)) // both after Riga midnight
}

func TestIsConsecutiveDay(t *testing.T) {
	a := time.Date(2026, 6, 7, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 6, 8, 1, 0, 0, 0, time.UTC)
	c := time.Date(2026, 6, 9, 1, 0, 0, 0, time.UTC)

	assert.True(t, IsConsecutiveDay(a, b, time.UTC))
	assert.False(t, IsConsecutiveDay(a, c, time.UTC))
	assert.False(t, IsConsecutiveDay(b, a, time.UTC))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 6, 7, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 6, 10, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, DaysBetween(a, b, time.UTC))
	assert.Equal(t, 3, DaysBetween(b, a, time.UTC)) // order-independent
	assert.Equal(t, 0, DaysBetween(a, a, time.UTC))
}

func TestFormatting(t *testing.T) {
	instant := time.Date(2026, 6, 7, 14, 5, 0, 0, time.UTC)

	assert.Equal(t, "2026-06-07", FormatDateStr(instant, time.UTC))
	assert.Equal(t, "14:05", FormatTimeStr(instant, time.UTC))
	assert.Equal(t, "7 June 2026", FormatIn(instant, FormatHumanDate, time.UTC))
}

func TestParseDateIn(t *testing.T) {
	riga, err := time.LoadLocation("Europe/Riga")
	require.NoError(t, err)

	got, err := ParseDateIn("2026-06-07", riga)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 7, 0, 0, 0, 0, riga), got)

	_, err = ParseDateIn("07.06.2026", riga)
	assert.Error(t, err)
}

func TestLoadLocation(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
	assert.Equal(t, "Asia/Tokyo", LoadLocation("Asia/Tokyo").String())
}
