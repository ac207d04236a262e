package release

import (
	"sort"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// StartOffset is the fixed offset between a cohort's start date and the
// release of its week-1 lessons. The original platform shipped with this
// one-day shift as a timezone normalization and learners' expectations have
// formed around it, so it is kept as-is.
// TODO(schedule): confirm with course ops whether week 1 should release on
// the start date itself; see the open question in DESIGN.md.
const StartOffset = 24 * time.Hour

// BuildSchedule computes a release record for every lesson of a course,
// anchored at the cohort's start date:
//
//	releaseAt = startDate + 1 day + (weekNumber-1) * 7 days
//
// with the time of day clamped to releaseHour in startDate's location,
// discarding whatever time of day startDate carried. The result is sorted
// by week number, then by order within the week.
//
// Pure computation; persistence is the caller's concern. The now argument
// drives the advisory Released flag and CreatedAt, so callers pass their
// clock's reading. Re-running it for a cohort that already has records
// produces duplicates - callers invoke it exactly once per cohort.
func BuildSchedule(cohortID shared.CohortID, lessons []Lesson, startDate time.Time, releaseHour int, now time.Time, newID func() string) ([]*Record, error) {
	if len(lessons) == 0 {
		return nil, shared.ErrNoLessonsForCourse
	}
	if releaseHour < 0 || releaseHour > 23 {
		releaseHour = 8
	}

	ordered := make([]Lesson, len(lessons))
	copy(ordered, lessons)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].WeekNumber != ordered[j].WeekNumber {
			return ordered[i].WeekNumber < ordered[j].WeekNumber
		}
		return ordered[i].OrderInWeek < ordered[j].OrderInWeek
	})

	records := make([]*Record, 0, len(ordered))
	for _, lesson := range ordered {
		if err := lesson.Validate(); err != nil {
			return nil, err
		}

		releaseAt := releaseInstant(startDate, lesson.WeekNumber, releaseHour)
		records = append(records, &Record{
			ID:         newID(),
			CohortID:   cohortID,
			LessonID:   lesson.ID,
			CourseID:   lesson.CourseID,
			WeekNumber: lesson.WeekNumber,
			ReleaseAt:  releaseAt,
			Released:   !now.Before(releaseAt),
			CreatedAt:  now,
		})
	}

	return records, nil
}

// releaseInstant applies the start offset, the weekly stride and the
// release-hour clamp in the start date's location.
func releaseInstant(startDate time.Time, weekNumber, releaseHour int) time.Time {
	anchor := startDate.Add(StartOffset)
	if weekNumber > 1 {
		anchor = anchor.Add(time.Duration(weekNumber-1) * 7 * 24 * time.Hour)
	}
	return time.Date(anchor.Year(), anchor.Month(), anchor.Day(), releaseHour, 0, 0, 0, anchor.Location())
}
