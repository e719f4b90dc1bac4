package core

import (
	"time"

	"github.com/google/uuid"
)

// CopyReturnedEventType is the event type identifier.
const CopyReturnedEventType = "CopyReturned"

// CopyReturned represents when a reader brings a borrowed copy back. It carries the computed fine.
type CopyReturned struct {
	EventType  string
	BorrowID   uuid.UUID
	CopyID     CopyID
	ReaderID   ReaderID
	BorrowedAt time.Time
	Fine       Fine
	OccurredAt OccurredAt
}

// BuildCopyReturned creates a new CopyReturned event for the given active borrow.
func BuildCopyReturned(borrow Borrow, occurredAt time.Time) CopyReturned {
	returned := borrow.ReturnedOn(occurredAt)

	return CopyReturned{
		EventType:  CopyReturnedEventType,
		BorrowID:   borrow.ID,
		CopyID:     borrow.CopyID,
		ReaderID:   borrow.ReaderID,
		BorrowedAt: borrow.BorrowedAt,
		Fine:       returned.Fine,
		OccurredAt: *returned.ReturnedAt,
	}
}

// IsEventType returns the event type identifier.
func (e CopyReturned) IsEventType() string {
	return CopyReturnedEventType
}

// HasOccurredAt returns when this event occurred.
func (e CopyReturned) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// ConcernsCopy returns the returned copy.
func (e CopyReturned) ConcernsCopy() CopyID {
	return e.CopyID
}
