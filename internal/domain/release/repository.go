package release

import (
	"context"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// Repository defines the persistence contract for release records.
// Records are owned by the scheduler; every other component reads them only.
type Repository interface {
	// SaveBatch persists all records as a single atomic batch:
	// either every record appears or none do.
	SaveBatch(ctx context.Context, records []*Record) error

	// GetByLesson returns the record for a (cohort, lesson) pair.
	// Returns shared.ErrReleaseNotFound when no record exists.
	GetByLesson(ctx context.Context, cohortID shared.CohortID, lessonID shared.LessonID) (*Record, error)

	// GetByCohort returns all records of a cohort ordered by week number.
	GetByCohort(ctx context.Context, cohortID shared.CohortID) ([]*Record, error)

	// MarkReleased flips the advisory Released flag on records whose
	// ReleaseAt instant has passed. Returns the number of flipped records.
	MarkReleased(ctx context.Context, now time.Time) (int, error)
}

// LessonRepository reads the lesson list of a course, ordered by week number.
type LessonRepository interface {
	// GetByCourse returns all lessons of a course.
	GetByCourse(ctx context.Context, courseID shared.CourseID) ([]Lesson, error)

	// CountByCourse returns the number of lessons in a course.
	CountByCourse(ctx context.Context, courseID shared.CourseID) (int, error)

	// GetByCourseWeek returns the lessons of one week of a course.
	GetByCourseWeek(ctx context.Context, courseID shared.CourseID, week int) ([]Lesson, error)
}
