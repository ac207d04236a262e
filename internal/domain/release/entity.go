// Package release contains domain entities and business logic for the
// drip-release schedule: when each lesson of a cohort becomes visible.
// This is a pure domain layer with zero external dependencies.
package release

import (
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// Lesson is the slice of course content the scheduler cares about:
// its identity and the week it belongs to. Full lesson content lives
// outside this engine.
type Lesson struct {
	ID          shared.LessonID
	CourseID    shared.CourseID
	Title       string
	WeekNumber  int
	OrderInWeek int
}

// Validate checks lesson invariants relevant to scheduling.
func (l Lesson) Validate() error {
	if !l.ID.IsValid() {
		return shared.NewDomainError("release", "Validate", shared.ErrInvalidID, "lesson ID is required")
	}
	if l.WeekNumber < 1 {
		return shared.ErrInvalidWeekNumber
	}
	return nil
}

// Record is the persisted unlock instant for one lesson within one cohort.
// One record per (cohort, lesson) pair, created once at cohort creation and
// never recomputed afterward: moving a cohort's start date does not move
// already materialized records.
type Record struct {
	ID         string
	CohortID   shared.CohortID
	LessonID   shared.LessonID
	CourseID   shared.CourseID
	WeekNumber int

	// ReleaseAt is the authoritative unlock instant.
	ReleaseAt time.Time

	// Released is an advisory flag flipped by a background sweep once
	// ReleaseAt has passed. Availability checks always compare time;
	// the flag exists for cheap listing queries only.
	Released bool

	CreatedAt time.Time
}

// ReleasedAt reports whether the lesson is unlocked at the given instant.
// The boundary is inclusive: the lesson unlocks exactly at ReleaseAt.
//
// When a learner location is supplied, the question becomes "has the release
// hour arrived on the release day in the learner's locale": the record's
// calendar date is projected into the learner zone at the release hour and
// compared against the learner's wall clock. Without a location the absolute
// instants are compared directly.
func (r *Record) ReleasedAt(now time.Time, releaseHour int, loc *time.Location) bool {
	if loc == nil {
		return !now.Before(r.ReleaseAt)
	}
	local := r.ReleaseAt.In(loc)
	localRelease := time.Date(local.Year(), local.Month(), local.Day(), releaseHour, 0, 0, 0, loc)
	return !now.In(loc).Before(localRelease)
}
