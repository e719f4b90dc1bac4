package core

import (
	"time"

	"github.com/google/uuid"
)

// ReservationFulfilledEventType is the event type identifier.
const ReservationFulfilledEventType = "ReservationFulfilled"

// ReservationFulfilled represents the automatic cancellation of a reservation
// when its holder checks the reserved copy out.
type ReservationFulfilled struct {
	EventType  string
	ReserveID  uuid.UUID
	CopyID     CopyID
	ReaderID   ReaderID
	OccurredAt OccurredAt
}

// BuildReservationFulfilled creates a new ReservationFulfilled event.
func BuildReservationFulfilled(reserve Reserve, occurredAt time.Time) ReservationFulfilled {
	return ReservationFulfilled{
		EventType:  ReservationFulfilledEventType,
		ReserveID:  reserve.ID,
		CopyID:     reserve.CopyID,
		ReaderID:   reserve.ReaderID,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e ReservationFulfilled) IsEventType() string {
	return ReservationFulfilledEventType
}

// HasOccurredAt returns when this event occurred.
func (e ReservationFulfilled) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// ConcernsCopy returns the copy whose reservation was consumed.
func (e ReservationFulfilled) ConcernsCopy() CopyID {
	return e.CopyID
}
