package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

var enrollNow = time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)

const enrollCohortID = "9ca4322d-ebd5-4ffa-a340-56fe811bbab1"

func activeCohort() *cohort.Cohort {
	return &cohort.Cohort{
		ID:          shared.CohortID(enrollCohortID),
		CourseID:    "go-basics",
		StartDate:   enrollNow.AddDate(0, 0, -3),
		EndDate:     enrollNow.AddDate(0, 2, 0),
		MaxStudents: 30,
	}
}

func TestEnrollStudent_Success(t *testing.T) {
	cohorts := newFakeCohortRepo(activeCohort())
	enrollments := newFakeEnrollmentRepo()
	events := &capturingPublisher{}
	handler := NewEnrollStudentHandler(cohorts, enrollments, shared.FixedClock{At: enrollNow}, events)

	result, err := handler.Handle(context.Background(), EnrollStudentCommand{
		UserID:   "user-1",
		CohortID: enrollCohortID,
		Email:    "learner@example.com",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.EnrollmentID)
	assert.Equal(t, "go-basics", result.CourseID)

	saved, err := enrollments.GetByUserAndCohort(context.Background(), "user-1", shared.CohortID(enrollCohortID))
	require.NoError(t, err)
	assert.True(t, saved.IsActive())
	assert.Equal(t, enrollNow, saved.EnrolledAt)

	require.Len(t, events.events, 1)
	created, ok := events.events[0].(shared.EnrollmentCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "learner@example.com", created.Email)
	assert.Equal(t, enrollCohortID, created.CohortID)

	// The student counter is not bumped inside the enrollment write;
	// it hangs off the published event.
	assert.Empty(t, cohorts.increments)
}

func TestEnrollStudent_DuplicateEnrollment(t *testing.T) {
	cohorts := newFakeCohortRepo(activeCohort())
	enrollments := newFakeEnrollmentRepo()
	handler := NewEnrollStudentHandler(cohorts, enrollments, shared.FixedClock{At: enrollNow}, nil)

	cmd := EnrollStudentCommand{UserID: "user-1", CohortID: enrollCohortID}

	_, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrEnrollmentExists)
}

func TestEnrollStudent_CancelledCohort(t *testing.T) {
	c := activeCohort()
	c.Cancelled = true
	handler := NewEnrollStudentHandler(newFakeCohortRepo(c), newFakeEnrollmentRepo(), shared.FixedClock{At: enrollNow}, nil)

	_, err := handler.Handle(context.Background(), EnrollStudentCommand{UserID: "user-1", CohortID: enrollCohortID})

	assert.ErrorIs(t, err, shared.ErrCohortCancelled)
}

func TestEnrollStudent_CohortNotFound(t *testing.T) {
	handler := NewEnrollStudentHandler(newFakeCohortRepo(), newFakeEnrollmentRepo(), shared.FixedClock{At: enrollNow}, nil)

	_, err := handler.Handle(context.Background(), EnrollStudentCommand{UserID: "user-1", CohortID: enrollCohortID})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEnrollStudent_Validation(t *testing.T) {
	handler := NewEnrollStudentHandler(newFakeCohortRepo(), newFakeEnrollmentRepo(), shared.FixedClock{At: enrollNow}, nil)

	_, err := handler.Handle(context.Background(), EnrollStudentCommand{CohortID: enrollCohortID})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = handler.Handle(context.Background(), EnrollStudentCommand{UserID: "user-1"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
