// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")
	ErrExhausted        = errors.New("usage limit exhausted")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "cohort", "release", "progress"
	Op      string // Operation that failed, e.g., "Create", "Redeem"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Cohort domain errors
var (
	ErrCohortNotFound      = NewDomainError("cohort", "Find", ErrNotFound, "cohort not found")
	ErrCohortAlreadyExists = NewDomainError("cohort", "Create", ErrAlreadyExists, "cohort already exists")
	ErrCohortFull          = NewDomainError("cohort", "Enroll", ErrValueOutOfRange, "cohort has reached max students")
	ErrInvalidCohortDates  = NewDomainError("cohort", "Validate", ErrInvalidInput, "start date must be before end date")
	ErrCohortCancelled     = NewDomainError("cohort", "CheckStatus", ErrInvalidState, "cohort is cancelled")
)

// Coupon domain errors
var (
	ErrCouponNotFound  = NewDomainError("coupon", "Find", ErrNotFound, "coupon not found")
	ErrCouponInactive  = NewDomainError("coupon", "Validate", ErrInvalidState, "coupon is not active")
	ErrCouponExpired   = NewDomainError("coupon", "Validate", ErrExpired, "coupon is outside its validity window")
	ErrCouponExhausted = NewDomainError("coupon", "Redeem", ErrExhausted, "coupon usage limit reached")
	ErrCouponMinAmount = NewDomainError("coupon", "Validate", ErrValueOutOfRange, "order amount below coupon minimum")
)

// Release domain errors
var (
	ErrReleaseNotFound    = NewDomainError("release", "Find", ErrNotFound, "release record not found")
	ErrNoLessonsForCourse = NewDomainError("release", "Schedule", ErrNotFound, "course has no lessons")
	ErrInvalidWeekNumber  = NewDomainError("release", "Validate", ErrValueOutOfRange, "week number must be positive")
)

// Progress domain errors
var (
	ErrProgressNotFound     = NewDomainError("progress", "Find", ErrNotFound, "lesson progress not found")
	ErrEnrollmentNotFound   = NewDomainError("progress", "FindEnrollment", ErrNotFound, "enrollment not found")
	ErrEnrollmentExists     = NewDomainError("progress", "Enroll", ErrAlreadyExists, "learner already enrolled in cohort")
	ErrCompletionRegression = NewDomainError("progress", "Update", ErrStateTransition, "completed lesson cannot revert to incomplete")
	ErrInvalidPercentage    = NewDomainError("progress", "Validate", ErrValueOutOfRange, "watched percentage must be 0-100")
)

// External collaborator errors
var (
	ErrPaymentGatewayUnavailable = NewDomainError("payments", "CreateSession", ErrServiceUnavailable, "payment gateway is unavailable")
	ErrPaymentGatewayTimeout     = NewDomainError("payments", "CreateSession", ErrTimeout, "payment gateway request timeout")
	ErrMailerFailed              = NewDomainError("mailer", "Send", ErrExternalService, "failed to send transactional email")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
