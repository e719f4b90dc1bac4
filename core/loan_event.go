package core

import (
	"context"
	"time"
)

// LoanEvents is a slice of LoanEvent instances.
type LoanEvents = []LoanEvent

// LoanEvent describes a state change of a copy's loan or reservation.
// Decide functions emit them, the shell applies them to the store and publishes them after commit.
type LoanEvent interface {
	// IsEventType returns the string identifier for this event type.
	IsEventType() string

	// HasOccurredAt returns when this event occurred.
	HasOccurredAt() time.Time

	// ConcernsCopy returns the copy the event is about, used as the partition key for publishing.
	ConcernsCopy() CopyID
}

// LoanEventPublisher hands committed loan events to downstream consumers.
type LoanEventPublisher interface {
	Publish(ctx context.Context, events ...LoanEvent) error
}
