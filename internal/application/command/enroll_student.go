package command

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/progress"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL STUDENT COMMAND
// Writes the enrollment record after payment confirmation. The cohort's
// student counter and the confirmation email hang off the published event:
// they are best-effort side effects, deliberately outside the enrollment
// write (the counter is eventually consistent, not a hard invariant).
// ══════════════════════════════════════════════════════════════════════════════

// EnrollStudentCommand contains the data to enroll a learner.
type EnrollStudentCommand struct {
	// UserID is the learner.
	UserID string

	// CohortID is the cohort the learner paid for.
	CohortID string

	// Email receives the enrollment confirmation (optional).
	Email string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EnrollStudentCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("enroll_student: user_id is required")
	}
	if c.CohortID == "" {
		return errors.New("enroll_student: cohort_id is required")
	}
	return nil
}

// EnrollStudentResult contains the enrollment outcome.
type EnrollStudentResult struct {
	// EnrollmentID is the ID of the created enrollment.
	EnrollmentID string `json:"enrollment_id"`

	// CourseID is the course of the cohort.
	CourseID string `json:"course_id"`
}

// EnrollStudentHandler handles enrollment.
type EnrollStudentHandler struct {
	cohorts     cohort.Repository
	enrollments progress.EnrollmentRepository
	clock       shared.Clock
	events      EventPublisher
}

// NewEnrollStudentHandler creates a new handler.
func NewEnrollStudentHandler(
	cohorts cohort.Repository,
	enrollments progress.EnrollmentRepository,
	clock shared.Clock,
	events EventPublisher,
) *EnrollStudentHandler {
	if events == nil {
		events = NopPublisher{}
	}
	return &EnrollStudentHandler{
		cohorts:     cohorts,
		enrollments: enrollments,
		clock:       clock,
		events:      events,
	}
}

// Handle executes the command.
func (h *EnrollStudentHandler) Handle(ctx context.Context, cmd EnrollStudentCommand) (*EnrollStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "EnrollStudent", shared.ErrValidation, err.Error(), err)
	}

	cohortID := shared.CohortID(cmd.CohortID)
	userID := shared.UserID(cmd.UserID)
	now := h.clock.Now()

	c, err := h.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if c.Status(now) == cohort.StatusCancelled {
		return nil, shared.ErrCohortCancelled
	}

	existing, err := h.enrollments.GetByUserAndCohort(ctx, userID, cohortID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, shared.WrapError("command", "EnrollStudent", shared.ErrExternalService, "failed to check existing enrollment", err)
	}
	if existing != nil {
		return nil, shared.ErrEnrollmentExists
	}

	e, err := progress.NewEnrollment(uuid.NewString(), userID, c.CourseID, cohortID, now)
	if err != nil {
		return nil, err
	}

	if err := h.enrollments.Save(ctx, e); err != nil {
		return nil, shared.WrapError("command", "EnrollStudent", shared.ErrExternalService, "failed to save enrollment", err)
	}

	_ = h.events.Publish(ctx, shared.NewEnrollmentCreatedEvent(e.ID, cmd.UserID, c.CourseID.String(), cmd.CohortID, cmd.Email))

	return &EnrollStudentResult{
		EnrollmentID: e.ID,
		CourseID:     c.CourseID.String(),
	}, nil
}
