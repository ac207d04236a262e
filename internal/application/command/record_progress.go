package command

import (
	"context"
	"errors"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/community"
	"github.com/cohort-hub/cohort-engine/internal/domain/progress"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD PROGRESS COMMAND
// Records a watch tick or an explicit completion for one lesson. The record
// is created on the first event and mutated afterwards; completion is
// monotonic and never reverts through normal updates.
// ══════════════════════════════════════════════════════════════════════════════

// RecordProgressCommand contains the data of one progress tick.
type RecordProgressCommand struct {
	// UserID is the learner.
	UserID string

	// LessonID / CourseID identify the lesson.
	LessonID string
	CourseID string

	// WatchedPercentage is the current watch position, 0-100.
	WatchedPercentage float64

	// MarkCompleted forces completion regardless of percentage
	// (e.g. a quiz pass).
	MarkCompleted bool

	// Timestamp is when the tick occurred (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c RecordProgressCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("record_progress: user_id is required")
	}
	if c.LessonID == "" {
		return errors.New("record_progress: lesson_id is required")
	}
	if c.WatchedPercentage < 0 || c.WatchedPercentage > 100 {
		return errors.New("record_progress: watched_percentage must be 0-100")
	}
	return nil
}

// RecordProgressResult reports the post-tick state.
type RecordProgressResult struct {
	// Completed is the lesson's completion state after the tick.
	Completed bool `json:"completed"`

	// FirstCompletion is true when this very tick flipped completion.
	FirstCompletion bool `json:"first_completion"`

	// WatchedPercentage is the furthest watch position after the tick.
	WatchedPercentage float64 `json:"watched_percentage"`
}

// RecordProgressHandler handles progress ticks.
type RecordProgressHandler struct {
	repo     progress.Repository
	presence community.PresenceTracker
	clock    shared.Clock
	events   EventPublisher
}

// NewRecordProgressHandler creates a new handler.
func NewRecordProgressHandler(repo progress.Repository, presence community.PresenceTracker, clock shared.Clock, events EventPublisher) *RecordProgressHandler {
	if events == nil {
		events = NopPublisher{}
	}
	return &RecordProgressHandler{
		repo:     repo,
		presence: presence,
		clock:    clock,
		events:   events,
	}
}

// Handle executes the command.
func (h *RecordProgressHandler) Handle(ctx context.Context, cmd RecordProgressCommand) (*RecordProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "RecordProgress", shared.ErrValidation, err.Error(), err)
	}

	at := cmd.Timestamp
	if at.IsZero() {
		at = h.clock.Now()
	}

	userID := shared.UserID(cmd.UserID)
	lessonID := shared.LessonID(cmd.LessonID)

	p, err := h.repo.Get(ctx, userID, lessonID)
	switch {
	case err == nil:
		// Existing record, tick it below.
	case errors.Is(err, shared.ErrNotFound):
		p, err = progress.NewLessonProgress(userID, lessonID, shared.CourseID(cmd.CourseID), at)
		if err != nil {
			return nil, err
		}
	default:
		return nil, shared.WrapError("command", "RecordProgress", shared.ErrExternalService, "failed to load progress", err)
	}

	wasCompleted := p.Completed

	if err := p.ApplyTick(cmd.WatchedPercentage, at); err != nil {
		return nil, err
	}
	if cmd.MarkCompleted {
		p.MarkCompleted(at)
	}

	if err := h.repo.Save(ctx, p); err != nil {
		return nil, shared.WrapError("command", "RecordProgress", shared.ErrExternalService, "failed to save progress", err)
	}

	// A watch tick is also a liveness signal for the online counters.
	if h.presence != nil {
		_ = h.presence.Touch(ctx, userID)
	}

	firstCompletion := p.Completed && !wasCompleted
	if firstCompletion {
		_ = h.events.Publish(ctx, shared.NewLessonCompletedEvent(cmd.UserID, cmd.LessonID, cmd.CourseID))
	}

	return &RecordProgressResult{
		Completed:         p.Completed,
		FirstCompletion:   firstCompletion,
		WatchedPercentage: p.WatchedPercentage,
	}, nil
}
