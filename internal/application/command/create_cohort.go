package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/release"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE COHORT COMMAND
// Creates a cohort and materializes its lesson release schedule in the same
// request. The schedule is written once, as a single atomic batch, and is
// never recomputed - later changes to the cohort's start date do not move
// existing release records.
// ══════════════════════════════════════════════════════════════════════════════

// CreateCohortCommand contains the data to create a cohort.
type CreateCohortCommand struct {
	// CourseID is the course this cohort offers.
	CourseID string

	// Name is the display name, e.g. "Autumn 2026".
	Name string

	// StartDate / EndDate bound the cohort. StartDate must precede EndDate.
	StartDate time.Time
	EndDate   time.Time

	// MaxStudents is the cohort capacity.
	MaxStudents int

	// Pricing is the embedded pricing configuration.
	Pricing cohort.PricingConfig

	// Coupons optionally seeds the cohort's coupon set.
	Coupons []cohort.Coupon

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreateCohortCommand) Validate() error {
	if c.CourseID == "" {
		return errors.New("create_cohort: course_id is required")
	}
	if c.Name == "" {
		return errors.New("create_cohort: name is required")
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return errors.New("create_cohort: start_date and end_date are required")
	}
	if !c.StartDate.Before(c.EndDate) {
		return errors.New("create_cohort: start_date must be before end_date")
	}
	if c.MaxStudents <= 0 {
		return errors.New("create_cohort: max_students must be positive")
	}
	return nil
}

// CreateCohortResult contains the outcome of cohort creation.
type CreateCohortResult struct {
	// CohortID is the ID of the created cohort.
	CohortID string `json:"cohort_id"`

	// ScheduledLessons is the number of release records materialized.
	ScheduledLessons int `json:"scheduled_lessons"`

	// FirstReleaseAt / LastReleaseAt bound the schedule.
	FirstReleaseAt time.Time `json:"first_release_at"`
	LastReleaseAt  time.Time `json:"last_release_at"`
}

// CreateCohortHandler handles cohort creation.
type CreateCohortHandler struct {
	cohorts  cohort.Repository
	lessons  release.LessonRepository
	releases release.Repository
	events   EventPublisher
	clock    shared.Clock
}

// NewCreateCohortHandler creates a new handler.
func NewCreateCohortHandler(
	cohorts cohort.Repository,
	lessons release.LessonRepository,
	releases release.Repository,
	events EventPublisher,
	clock shared.Clock,
) *CreateCohortHandler {
	if events == nil {
		events = NopPublisher{}
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &CreateCohortHandler{
		cohorts:  cohorts,
		lessons:  lessons,
		releases: releases,
		events:   events,
		clock:    clock,
	}
}

// Handle executes the command.
func (h *CreateCohortHandler) Handle(ctx context.Context, cmd CreateCohortCommand) (*CreateCohortResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "CreateCohort", shared.ErrValidation, err.Error(), err)
	}

	id := shared.CohortID(uuid.NewString())
	c, err := cohort.NewCohort(id, shared.CourseID(cmd.CourseID), cmd.Name, cmd.StartDate, cmd.EndDate, cmd.MaxStudents, cmd.Pricing)
	if err != nil {
		return nil, err
	}
	c.Coupons = append(c.Coupons, cmd.Coupons...)

	if err := h.cohorts.Save(ctx, c); err != nil {
		return nil, shared.WrapError("command", "CreateCohort", shared.ErrExternalService, "failed to save cohort", err)
	}

	lessons, err := h.lessons.GetByCourse(ctx, c.CourseID)
	if err != nil {
		return nil, shared.WrapError("command", "CreateCohort", shared.ErrExternalService, "failed to load course lessons", err)
	}

	records, err := release.BuildSchedule(c.ID, lessons, c.StartDate, c.ReleaseHour, h.clock.Now(), uuid.NewString)
	if err != nil {
		return nil, err
	}

	// All records of the cohort land in one atomic batch: either the full
	// schedule exists or none of it does.
	if err := h.releases.SaveBatch(ctx, records); err != nil {
		return nil, shared.WrapError("command", "CreateCohort", shared.ErrExternalService, "failed to persist release schedule", err)
	}

	first := records[0].ReleaseAt
	last := records[len(records)-1].ReleaseAt
	_ = h.events.Publish(ctx, shared.NewReleasesScheduledEvent(c.ID.String(), c.CourseID.String(), len(records), first, last))

	return &CreateCohortResult{
		CohortID:         c.ID.String(),
		ScheduledLessons: len(records),
		FirstReleaseAt:   first,
		LastReleaseAt:    last,
	}, nil
}
