package progress

import (
	"context"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// Repository defines the persistence contract for lesson progress.
type Repository interface {
	// Get returns the progress record for a (user, lesson) pair.
	// Returns shared.ErrProgressNotFound when no record exists.
	Get(ctx context.Context, userID shared.UserID, lessonID shared.LessonID) (*LessonProgress, error)

	// Save upserts a progress record keyed by (user, lesson).
	Save(ctx context.Context, p *LessonProgress) error

	// GetCompletionsByUser returns the completion timestamps of a user
	// within a course, for streak computation.
	GetCompletionsByUser(ctx context.Context, userID shared.UserID, courseID shared.CourseID) ([]time.Time, error)

	// CompletedLessonIDs returns the set of lessons the user has completed
	// in a course, for the sequential-access rule.
	CompletedLessonIDs(ctx context.Context, userID shared.UserID, courseID shared.CourseID) (map[shared.LessonID]bool, error)

	// CountCompletedByCohort returns the total number of completed lesson
	// records across all members of a cohort.
	CountCompletedByCohort(ctx context.Context, cohortID shared.CohortID) (int, error)

	// CountDistinctCompletersSince returns the number of distinct users with
	// a completion at or after the given instant.
	CountDistinctCompletersSince(ctx context.Context, since time.Time) (int, error)

	// CompletedLessonsByMember returns, per cohort member, the set of
	// completed lesson IDs restricted to the given lessons.
	CompletedLessonsByMember(ctx context.Context, cohortID shared.CohortID, lessons []shared.LessonID) (map[shared.UserID]map[shared.LessonID]bool, error)
}

// EnrollmentRepository defines the persistence contract for enrollments.
type EnrollmentRepository interface {
	// Save persists a new enrollment.
	Save(ctx context.Context, e *Enrollment) error

	// GetByUserAndCohort returns a user's enrollment in a cohort.
	// Returns shared.ErrEnrollmentNotFound when absent.
	GetByUserAndCohort(ctx context.Context, userID shared.UserID, cohortID shared.CohortID) (*Enrollment, error)

	// ActiveMembers returns the user IDs actively enrolled in a cohort.
	ActiveMembers(ctx context.Context, cohortID shared.CohortID) ([]shared.UserID, error)

	// CountActiveMembers returns the number of active members of a cohort.
	CountActiveMembers(ctx context.Context, cohortID shared.CohortID) (int, error)
}
