package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/release"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

var availNow = time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)

const availCohortID = "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b"

func courseWithLessons() *stubLessonRepo {
	return &stubLessonRepo{lessons: map[shared.CourseID][]release.Lesson{
		"go-basics": {
			{ID: "l1", CourseID: "go-basics", WeekNumber: 1, OrderInWeek: 1},
			{ID: "l2", CourseID: "go-basics", WeekNumber: 1, OrderInWeek: 2},
			{ID: "l3", CourseID: "go-basics", WeekNumber: 2, OrderInWeek: 1},
		},
	}}
}

func releasedRecord(lessonID shared.LessonID, releaseAt time.Time) *release.Record {
	return &release.Record{
		ID:       "rec-" + lessonID.String(),
		CohortID: shared.CohortID(availCohortID),
		LessonID: lessonID,
		CourseID: "go-basics",
		ReleaseAt: releaseAt,
	}
}

func availabilityHandler(releases *stubReleaseRepo, progressRepo *stubProgressRepo) *CheckAvailabilityHandler {
	c := &cohort.Cohort{
		ID:          shared.CohortID(availCohortID),
		CourseID:    "go-basics",
		ReleaseHour: 8,
	}
	if progressRepo == nil {
		progressRepo = &stubProgressRepo{}
	}
	return NewCheckAvailabilityHandler(releases, courseWithLessons(), progressRepo, newStubCohortRepo(c), shared.FixedClock{At: availNow})
}

func TestCheckAvailability_ReleasedLesson(t *testing.T) {
	releases := newStubReleaseRepo(releasedRecord("l1", availNow.Add(-time.Hour)))
	handler := availabilityHandler(releases, nil)

	result, err := handler.Handle(context.Background(), CheckAvailabilityQuery{LessonID: "l1", CohortID: availCohortID})

	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.True(t, result.TimeReleased)
	assert.True(t, result.PrerequisitesMet)
	assert.Empty(t, result.Reason)
}

func TestCheckAvailability_ReleaseBoundaryInclusive(t *testing.T) {
	releases := newStubReleaseRepo(releasedRecord("l1", availNow))
	handler := availabilityHandler(releases, nil)

	result, err := handler.Handle(context.Background(), CheckAvailabilityQuery{LessonID: "l1", CohortID: availCohortID})

	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckAvailability_FutureLessonLocked(t *testing.T) {
	releases := newStubReleaseRepo(releasedRecord("l1", availNow.Add(time.Minute)))
	handler := availabilityHandler(releases, nil)

	result, err := handler.Handle(context.Background(), CheckAvailabilityQuery{LessonID: "l1", CohortID: availCohortID})

	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.False(t, result.TimeReleased)
	assert.Equal(t, "lesson not released yet", result.Reason)
}

func TestCheckAvailability_MissingRecordFailsClosed(t *testing.T) {
	handler := availabilityHandler(newStubReleaseRepo(), nil)

	result, err := handler.Handle(context.Background(), CheckAvailabilityQuery{LessonID: "l9", CohortID: availCohortID})

	// Locked verdict, not an error: absence of a record must never leak
	// future content or break the page.
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, "no release record for lesson", result.Reason)
	assert.True(t, result.ReleaseAt.IsZero())
}

func TestCheckAvailability_StoreFaultPropagates(t *testing.T) {
	releases := newStubReleaseRepo()
	releases.err = assert.AnError
	handler := availabilityHandler(releases, nil)

	_, err := handler.Handle(context.Background(), CheckAvailabilityQuery{LessonID: "l1", CohortID: availCohortID})

	assert.ErrorIs(t, err, shared.ErrExternalService)
}

func TestCheckAvailability_PrerequisitesGate(t *testing.T) {
	releases := newStubReleaseRepo(
		releasedRecord("l1", availNow.Add(-2*time.Hour)),
		releasedRecord("l2", availNow.Add(-time.Hour)),
	)

	progressRepo := &stubProgressRepo{completed: map[shared.UserID]map[shared.LessonID]bool{}}
	handler := availabilityHandler(releases, progressRepo)

	// Released in time, but lesson one is not completed yet.
	result, err := handler.Handle(context.Background(), CheckAvailabilityQuery{
		LessonID: "l2", CohortID: availCohortID, UserID: "user-1",
	})
	require.NoError(t, err)
	assert.True(t, result.TimeReleased)
	assert.False(t, result.PrerequisitesMet)
	assert.False(t, result.Available)
	assert.Equal(t, "earlier lessons not completed", result.Reason)

	// Completing lesson one opens the gate.
	progressRepo.completed["user-1"] = map[shared.LessonID]bool{"l1": true}
	result, err = handler.Handle(context.Background(), CheckAvailabilityQuery{
		LessonID: "l2", CohortID: availCohortID, UserID: "user-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckAvailability_FirstLessonHasNoPrerequisite(t *testing.T) {
	releases := newStubReleaseRepo(releasedRecord("l1", availNow.Add(-time.Hour)))
	progressRepo := &stubProgressRepo{}
	handler := availabilityHandler(releases, progressRepo)

	result, err := handler.Handle(context.Background(), CheckAvailabilityQuery{
		LessonID: "l1", CohortID: availCohortID, UserID: "user-1",
	})

	require.NoError(t, err)
	assert.True(t, result.PrerequisitesMet)
	assert.True(t, result.Available)
}

func TestCheckAvailability_AnonymousSkipsPrerequisites(t *testing.T) {
	releases := newStubReleaseRepo(releasedRecord("l3", availNow.Add(-time.Hour)))
	handler := availabilityHandler(releases, &stubProgressRepo{completedIDsErr: assert.AnError})

	// No UserID: the sequential-access gate is not evaluated at all.
	result, err := handler.Handle(context.Background(), CheckAvailabilityQuery{LessonID: "l3", CohortID: availCohortID})

	require.NoError(t, err)
	assert.True(t, result.PrerequisitesMet)
}

func TestCheckAvailability_LearnerTimezone(t *testing.T) {
	// Release instant 08:00 UTC today; for a Tokyo learner the release day
	// is projected to 08:00 Tokyo, which passed hours ago.
	releases := newStubReleaseRepo(releasedRecord("l1", time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)))
	handler := availabilityHandler(releases, nil)

	result, err := handler.Handle(context.Background(), CheckAvailabilityQuery{
		LessonID: "l1", CohortID: availCohortID, Timezone: "Asia/Tokyo",
	})
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckAvailability_UnknownTimezoneFallsBack(t *testing.T) {
	releases := newStubReleaseRepo(releasedRecord("l1", availNow.Add(-time.Hour)))
	handler := availabilityHandler(releases, nil)

	result, err := handler.Handle(context.Background(), CheckAvailabilityQuery{
		LessonID: "l1", CohortID: availCohortID, Timezone: "Not/AZone",
	})

	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckAvailability_Validation(t *testing.T) {
	handler := availabilityHandler(newStubReleaseRepo(), nil)

	_, err := handler.Handle(context.Background(), CheckAvailabilityQuery{CohortID: availCohortID})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = handler.Handle(context.Background(), CheckAvailabilityQuery{LessonID: "l1"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
