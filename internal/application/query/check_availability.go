// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/progress"
	"github.com/cohort-hub/cohort-engine/internal/domain/release"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK AVAILABILITY QUERY
// Answers "may this learner see this lesson right now". Two independent
// gates: the release instant has passed, and every earlier lesson of the
// course is completed (lesson one has no prerequisite). A missing release
// record fails closed - the lesson stays locked rather than leaking
// future content.
// ══════════════════════════════════════════════════════════════════════════════

// CheckAvailabilityQuery contains the availability check parameters.
type CheckAvailabilityQuery struct {
	// LessonID / CohortID identify the release record.
	LessonID string
	CohortID string

	// UserID enables the sequential-access check (optional).
	UserID string

	// Timezone is the learner's IANA timezone name (optional). When set,
	// "has the release hour arrived" is evaluated against the learner's
	// wall clock rather than the server's.
	Timezone string
}

// Validate validates the query.
func (q CheckAvailabilityQuery) Validate() error {
	if q.LessonID == "" {
		return errors.New("check_availability: lesson_id is required")
	}
	if q.CohortID == "" {
		return errors.New("check_availability: cohort_id is required")
	}
	return nil
}

// AvailabilityResult is the availability snapshot for one lesson.
type AvailabilityResult struct {
	// Available is the combined verdict: released AND prerequisites met.
	Available bool `json:"available"`

	// TimeReleased reports the time gate alone.
	TimeReleased bool `json:"time_released"`

	// PrerequisitesMet reports the sequential-access gate alone.
	// Always true when no UserID was supplied.
	PrerequisitesMet bool `json:"prerequisites_met"`

	// ReleaseAt is the unlock instant (zero when no record exists).
	ReleaseAt time.Time `json:"release_at,omitempty"`

	// Reason explains a locked verdict.
	Reason string `json:"reason,omitempty"`
}

// CheckAvailabilityHandler handles availability checks.
type CheckAvailabilityHandler struct {
	releases release.Repository
	lessons  release.LessonRepository
	progress progress.Repository
	cohorts  cohort.Repository
	clock    shared.Clock
}

// NewCheckAvailabilityHandler creates a new handler.
func NewCheckAvailabilityHandler(
	releases release.Repository,
	lessons release.LessonRepository,
	progressRepo progress.Repository,
	cohorts cohort.Repository,
	clock shared.Clock,
) *CheckAvailabilityHandler {
	return &CheckAvailabilityHandler{
		releases: releases,
		lessons:  lessons,
		progress: progressRepo,
		cohorts:  cohorts,
		clock:    clock,
	}
}

// Handle executes the query.
func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (*AvailabilityResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "CheckAvailability", shared.ErrValidation, err.Error(), err)
	}

	now := h.clock.Now()
	cohortID := shared.CohortID(q.CohortID)
	lessonID := shared.LessonID(q.LessonID)

	record, err := h.releases.GetByLesson(ctx, cohortID, lessonID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Fail closed: no record means locked, never an error page.
			return &AvailabilityResult{Reason: "no release record for lesson"}, nil
		}
		return nil, shared.WrapError("query", "CheckAvailability", shared.ErrExternalService, "failed to load release record", err)
	}

	releaseHour := cohort.DefaultReleaseHour
	if c, err := h.cohorts.GetByID(ctx, cohortID); err == nil {
		releaseHour = c.ReleaseHour
	}

	var loc *time.Location
	if q.Timezone != "" {
		// An unknown timezone falls back to the absolute comparison.
		loc, _ = time.LoadLocation(q.Timezone)
	}

	result := &AvailabilityResult{
		ReleaseAt:        record.ReleaseAt,
		TimeReleased:     record.ReleasedAt(now, releaseHour, loc),
		PrerequisitesMet: true,
	}
	if !result.TimeReleased {
		result.Reason = "lesson not released yet"
	}

	if q.UserID != "" {
		met, err := h.prerequisitesMet(ctx, shared.UserID(q.UserID), record)
		if err != nil {
			return nil, err
		}
		result.PrerequisitesMet = met
		if !met && result.Reason == "" {
			result.Reason = "earlier lessons not completed"
		}
	}

	result.Available = result.TimeReleased && result.PrerequisitesMet
	return result, nil
}

// prerequisitesMet checks that every lesson ordered before the target lesson
// in the course is completed. The first lesson of the course is exempt.
func (h *CheckAvailabilityHandler) prerequisitesMet(ctx context.Context, userID shared.UserID, record *release.Record) (bool, error) {
	lessons, err := h.lessons.GetByCourse(ctx, record.CourseID)
	if err != nil {
		return false, shared.WrapError("query", "CheckAvailability", shared.ErrExternalService, "failed to load course lessons", err)
	}

	var earlier []shared.LessonID
	targetSeen := false
	for _, l := range lessons {
		if l.ID == record.LessonID {
			targetSeen = true
			break
		}
		earlier = append(earlier, l.ID)
	}
	if !targetSeen || len(earlier) == 0 {
		// Target is the first lesson (or unknown to the course list):
		// no prerequisite applies.
		return true, nil
	}

	completed, err := h.progress.CompletedLessonIDs(ctx, userID, record.CourseID)
	if err != nil {
		return false, shared.WrapError("query", "CheckAvailability", shared.ErrExternalService, "failed to load completions", err)
	}
	for _, id := range earlier {
		if !completed[id] {
			return false, nil
		}
	}
	return true, nil
}
