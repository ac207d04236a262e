// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// EventPublisher publishes domain events after successful writes.
// Implemented by the messaging event bus; handlers treat publishing as
// best-effort and never roll back a write because an event failed.
type EventPublisher interface {
	Publish(ctx context.Context, event shared.Event) error
}

// NopPublisher discards events. Useful in tests and tooling.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(ctx context.Context, event shared.Event) error {
	return nil
}
