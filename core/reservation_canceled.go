package core

import (
	"time"

	"github.com/google/uuid"
)

// ReservationCanceledEventType is the event type identifier.
const ReservationCanceledEventType = "ReservationCanceled"

// ReservationCanceled represents when a reader gives up a reservation.
type ReservationCanceled struct {
	EventType  string
	ReserveID  uuid.UUID
	CopyID     CopyID
	ReaderID   ReaderID
	OccurredAt OccurredAt
}

// BuildReservationCanceled creates a new ReservationCanceled event.
func BuildReservationCanceled(reserve Reserve, occurredAt time.Time) ReservationCanceled {
	return ReservationCanceled{
		EventType:  ReservationCanceledEventType,
		ReserveID:  reserve.ID,
		CopyID:     reserve.CopyID,
		ReaderID:   reserve.ReaderID,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e ReservationCanceled) IsEventType() string {
	return ReservationCanceledEventType
}

// HasOccurredAt returns when this event occurred.
func (e ReservationCanceled) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// ConcernsCopy returns the copy that is no longer reserved.
func (e ReservationCanceled) ConcernsCopy() CopyID {
	return e.CopyID
}
