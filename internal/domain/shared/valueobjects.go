// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// CohortID represents a unique cohort identifier (UUID format).
type CohortID string

// IsValid checks if the cohort ID is a valid UUID.
func (c CohortID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CohortID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c CohortID) IsEmpty() bool {
	return c == ""
}

// CourseID represents a unique course identifier.
type CourseID string

// IsValid checks that the course ID is non-empty and has no whitespace.
func (c CourseID) IsValid() bool {
	s := string(c)
	return s != "" && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// LessonID represents a unique lesson identifier within a course.
type LessonID string

// IsValid checks that the lesson ID is non-empty and has no whitespace.
func (l LessonID) IsValid() bool {
	s := string(l)
	return s != "" && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (l LessonID) String() string {
	return string(l)
}

// UserID represents a unique learner identifier.
type UserID string

// IsValid checks that the user ID is non-empty.
func (u UserID) IsValid() bool {
	return u != ""
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// ═══════════════════════════════════════════════════════════════════════════
// Currency Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Currency is a three-letter ISO 4217 currency code.
type Currency string

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// IsValid checks the ISO code shape.
func (c Currency) IsValid() bool {
	return currencyRegex.MatchString(string(c))
}

// String returns the string representation.
func (c Currency) String() string {
	return string(c)
}

// Normalize upper-cases the code.
func (c Currency) Normalize() Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(string(c))))
}
