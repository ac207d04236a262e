// Package progress contains domain entities and business logic for learner
// progress: per-lesson watch state, enrollments, and completion streaks.
// This is a pure domain layer with zero external dependencies.
package progress

import (
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// LessonProgress tracks one learner's state on one lesson.
// Created on the first watch event, mutated on every progress tick,
// never deleted. Owned by the learner who generated it.
type LessonProgress struct {
	UserID   shared.UserID
	LessonID shared.LessonID
	CourseID shared.CourseID

	// Completed is monotonic: once true it never flips back to false
	// through normal progress updates.
	Completed bool

	// WatchedPercentage is the furthest watch position, 0-100.
	WatchedPercentage float64

	// CompletedAt is set the first time Completed flips to true.
	CompletedAt *time.Time

	// LastWatchedAt is updated on every tick.
	LastWatchedAt time.Time
}

// CompletionThreshold is the watched percentage at which a lesson
// counts as completed.
const CompletionThreshold = 90.0

// NewLessonProgress creates the record for a first watch event.
func NewLessonProgress(userID shared.UserID, lessonID shared.LessonID, courseID shared.CourseID, watchedAt time.Time) (*LessonProgress, error) {
	if !userID.IsValid() {
		return nil, shared.NewDomainError("progress", "Create", shared.ErrInvalidID, "user ID is required")
	}
	if !lessonID.IsValid() {
		return nil, shared.NewDomainError("progress", "Create", shared.ErrInvalidID, "lesson ID is required")
	}
	return &LessonProgress{
		UserID:        userID,
		LessonID:      lessonID,
		CourseID:      courseID,
		LastWatchedAt: watchedAt,
	}, nil
}

// ApplyTick records a progress tick. The watched percentage only moves
// forward and completion never regresses: a tick with a lower percentage
// on a completed lesson updates LastWatchedAt and nothing else.
func (p *LessonProgress) ApplyTick(watchedPercentage float64, at time.Time) error {
	if watchedPercentage < 0 || watchedPercentage > 100 {
		return shared.ErrInvalidPercentage
	}

	p.LastWatchedAt = at
	if watchedPercentage > p.WatchedPercentage {
		p.WatchedPercentage = watchedPercentage
	}

	if !p.Completed && p.WatchedPercentage >= CompletionThreshold {
		p.Completed = true
		completedAt := at
		p.CompletedAt = &completedAt
	}

	return nil
}

// MarkCompleted flips completion explicitly (e.g. a quiz pass).
// Idempotent; the first completion timestamp wins.
func (p *LessonProgress) MarkCompleted(at time.Time) {
	if p.Completed {
		return
	}
	p.Completed = true
	p.CompletedAt = &at
	if p.WatchedPercentage < 100 {
		p.WatchedPercentage = 100
	}
	p.LastWatchedAt = at
}

// EnrollmentStatus is the lifecycle of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentPaused    EnrollmentStatus = "paused"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// IsValid checks the enrollment status.
func (s EnrollmentStatus) IsValid() bool {
	switch s {
	case EnrollmentActive, EnrollmentCompleted, EnrollmentPaused, EnrollmentCancelled:
		return true
	default:
		return false
	}
}

// Enrollment ties a learner to a cohort. Created at successful payment
// confirmation. The cohort's student counter is bumped as a separate
// best-effort side effect, not inside the enrollment write.
type Enrollment struct {
	ID         string
	UserID     shared.UserID
	CourseID   shared.CourseID
	CohortID   shared.CohortID
	Status     EnrollmentStatus
	EnrolledAt time.Time
}

// NewEnrollment creates an active enrollment.
func NewEnrollment(id string, userID shared.UserID, courseID shared.CourseID, cohortID shared.CohortID, at time.Time) (*Enrollment, error) {
	if id == "" {
		return nil, shared.NewDomainError("progress", "Enroll", shared.ErrInvalidID, "enrollment ID is required")
	}
	if !userID.IsValid() {
		return nil, shared.NewDomainError("progress", "Enroll", shared.ErrInvalidID, "user ID is required")
	}
	if cohortID.IsEmpty() {
		return nil, shared.NewDomainError("progress", "Enroll", shared.ErrInvalidID, "cohort ID is required")
	}
	return &Enrollment{
		ID:         id,
		UserID:     userID,
		CourseID:   courseID,
		CohortID:   cohortID,
		Status:     EnrollmentActive,
		EnrolledAt: at,
	}, nil
}

// IsActive reports whether the enrollment grants content access.
func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentActive
}
