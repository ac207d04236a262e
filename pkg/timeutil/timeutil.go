// Package timeutil provides timezone-aware calendar helpers.
// Cohorts run in the learner's local timezone, so every helper takes an
// explicit *time.Location instead of assuming a server zone. Handles day
// and week boundaries, date formatting, and streak day arithmetic.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// In converts a time to the given location, defaulting to UTC.
func In(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc)
}

// Date creates a time at midnight in the given location.
func Date(year, month, day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

// DateTime creates a time in the given location with the given date and time.
func DateTime(year, month, day, hour, min, sec int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, loc)
}

// StartOfDay returns the start of the day (00:00:00) in the given location.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := In(t, loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the given location.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := In(t, loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, local.Location())
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in the given location.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	local := In(t, loc)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract), local.Location())
}

// EndOfWeek returns the end of the week (Sunday 23:59:59) in the given location.
func EndOfWeek(t time.Time, loc *time.Location) time.Time {
	start := StartOfWeek(t, loc)
	return EndOfDay(start.AddDate(0, 0, 6), start.Location())
}

// AtHour returns the given day at hour:00:00 in the given location.
// Used to project a cohort's release hour onto a calendar day.
func AtHour(t time.Time, hour int, loc *time.Location) time.Time {
	local := In(t, loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, local.Location())
}

// IsSameDay checks if two times are on the same calendar day in the given location.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	a1, a2 := In(t1, loc), In(t2, loc)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// IsConsecutiveDay checks if t2 is the calendar day after t1.
func IsConsecutiveDay(t1, t2 time.Time, loc *time.Location) bool {
	nextDay := In(t1, loc).AddDate(0, 0, 1)
	return IsSameDay(nextDay, t2, loc)
}

// DaysBetween calculates the number of calendar days between two times.
func DaysBetween(t1, t2 time.Time, loc *time.Location) int {
	a1 := StartOfDay(t1, loc)
	a2 := StartOfDay(t2, loc)
	duration := a2.Sub(a1)
	days := int(duration.Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
	// FormatHumanDate is a human-readable format.
	FormatHumanDate = "2 January 2006"
	// FormatShortDate is a short format (Jan 2).
	FormatShortDate = "Jan 2"
)

// FormatIn formats a time in the given location with the given layout.
func FormatIn(t time.Time, layout string, loc *time.Location) string {
	return In(t, loc).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in the given location.
func FormatDateStr(t time.Time, loc *time.Location) string {
	return FormatIn(t, FormatDate, loc)
}

// FormatTimeStr formats a time as a time string (HH:MM) in the given location.
func FormatTimeStr(t time.Time, loc *time.Location) string {
	return FormatIn(t, FormatTime, loc)
}

// ParseIn parses a time string in the given location.
func ParseIn(layout, value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(layout, value, loc)
}

// ParseDateIn parses a date string (YYYY-MM-DD) in the given location.
func ParseDateIn(value string, loc *time.Location) (time.Time, error) {
	return ParseIn(FormatDate, value, loc)
}

// LoadLocation resolves an IANA timezone name, falling back to UTC for
// empty or unknown names. Availability checks fail closed elsewhere;
// formatting should not.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
