// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Cohort events
	EventCohortCreated   EventType = "cohort.created"
	EventCohortUpdated   EventType = "cohort.updated"
	EventCohortCancelled EventType = "cohort.cancelled"

	// Commerce events
	EventCouponRedeemed   EventType = "commerce.coupon_redeemed"
	EventCheckoutQuoted   EventType = "commerce.checkout_quoted"
	EventPaymentConfirmed EventType = "commerce.payment_confirmed"

	// Enrollment events
	EventEnrollmentCreated   EventType = "enrollment.created"
	EventEnrollmentCancelled EventType = "enrollment.cancelled"

	// Release events
	EventReleasesScheduled EventType = "release.scheduled"
	EventLessonReleased    EventType = "release.lesson_released"

	// Progress events
	EventLessonCompleted EventType = "progress.lesson_completed"
	EventStreakBroken    EventType = "progress.streak_broken"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes domain events.
type EventHandler interface {
	// Handle processes the event. Errors are logged by the bus, not propagated
	// to the publisher.
	Handle(event Event) error

	// EventTypes returns the event types this handler subscribes to.
	EventTypes() []EventType
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// Payload implements Event interface with the common envelope fields.
// Concrete events override this with their own data.
func (e BaseEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"type":         string(e.Type),
		"timestamp":    e.Timestamp,
		"aggregate_id": e.AggregateId,
	}
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Commerce Events
// ═══════════════════════════════════════════════════════════════════════════

// CouponRedeemedEvent is emitted after a successful coupon redemption.
type CouponRedeemedEvent struct {
	BaseEvent
	CohortID   string `json:"cohort_id"`
	CouponCode string `json:"coupon_code"`
	UsesLeft   int    `json:"uses_left"`
}

// NewCouponRedeemedEvent creates the event.
func NewCouponRedeemedEvent(cohortID, code string, usesLeft int) CouponRedeemedEvent {
	return CouponRedeemedEvent{
		BaseEvent:  NewBaseEvent(EventCouponRedeemed, cohortID),
		CohortID:   cohortID,
		CouponCode: code,
		UsesLeft:   usesLeft,
	}
}

// Payload implements Event.
func (e CouponRedeemedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"cohort_id":   e.CohortID,
		"coupon_code": e.CouponCode,
		"uses_left":   e.UsesLeft,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrollmentCreatedEvent is emitted when a learner enrolls after payment
// confirmation. The student counter bump and the confirmation email hang off
// this event; both are best-effort side effects, not part of the write.
type EnrollmentCreatedEvent struct {
	BaseEvent
	EnrollmentID string `json:"enrollment_id"`
	UserID       string `json:"user_id"`
	CourseID     string `json:"course_id"`
	CohortID     string `json:"cohort_id"`
	Email        string `json:"email,omitempty"`
}

// NewEnrollmentCreatedEvent creates the event.
func NewEnrollmentCreatedEvent(enrollmentID, userID, courseID, cohortID, email string) EnrollmentCreatedEvent {
	return EnrollmentCreatedEvent{
		BaseEvent:    NewBaseEvent(EventEnrollmentCreated, enrollmentID),
		EnrollmentID: enrollmentID,
		UserID:       userID,
		CourseID:     courseID,
		CohortID:     cohortID,
		Email:        email,
	}
}

// Payload implements Event. Email rides along so that a remote instance can
// rebuild the full event and still send the confirmation.
func (e EnrollmentCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"user_id":       e.UserID,
		"course_id":     e.CourseID,
		"cohort_id":     e.CohortID,
		"email":         e.Email,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Release Events
// ═══════════════════════════════════════════════════════════════════════════

// ReleasesScheduledEvent is emitted after the release schedule for a cohort
// has been materialized.
type ReleasesScheduledEvent struct {
	BaseEvent
	CohortID    string    `json:"cohort_id"`
	CourseID    string    `json:"course_id"`
	LessonCount int       `json:"lesson_count"`
	FirstAt     time.Time `json:"first_at"`
	LastAt      time.Time `json:"last_at"`
}

// NewReleasesScheduledEvent creates the event.
func NewReleasesScheduledEvent(cohortID, courseID string, count int, first, last time.Time) ReleasesScheduledEvent {
	return ReleasesScheduledEvent{
		BaseEvent:   NewBaseEvent(EventReleasesScheduled, cohortID),
		CohortID:    cohortID,
		CourseID:    courseID,
		LessonCount: count,
		FirstAt:     first,
		LastAt:      last,
	}
}

// Payload implements Event.
func (e ReleasesScheduledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"cohort_id":    e.CohortID,
		"course_id":    e.CourseID,
		"lesson_count": e.LessonCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// LessonCompletedEvent is emitted the first time a lesson flips to completed.
type LessonCompletedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	LessonID string `json:"lesson_id"`
	CourseID string `json:"course_id"`
}

// NewLessonCompletedEvent creates the event.
func NewLessonCompletedEvent(userID, lessonID, courseID string) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent: NewBaseEvent(EventLessonCompleted, userID),
		UserID:    userID,
		LessonID:  lessonID,
		CourseID:  courseID,
	}
}

// Payload implements Event.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"lesson_id": e.LessonID,
		"course_id": e.CourseID,
	}
}
