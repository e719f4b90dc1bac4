package core

import (
	"time"
)

// CopyCheckedOutEventType is the event type identifier.
const CopyCheckedOutEventType = "CopyCheckedOut"

// CopyCheckedOut represents when a reader borrows a copy.
type CopyCheckedOut struct {
	EventType  string
	CopyID     CopyID
	ReaderID   ReaderID
	OccurredAt OccurredAt
}

// BuildCopyCheckedOut creates a new CopyCheckedOut event.
func BuildCopyCheckedOut(copyID CopyID, readerID ReaderID, occurredAt time.Time) CopyCheckedOut {
	return CopyCheckedOut{
		EventType:  CopyCheckedOutEventType,
		CopyID:     copyID,
		ReaderID:   readerID,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e CopyCheckedOut) IsEventType() string {
	return CopyCheckedOutEventType
}

// HasOccurredAt returns when this event occurred.
func (e CopyCheckedOut) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// ConcernsCopy returns the borrowed copy.
func (e CopyCheckedOut) ConcernsCopy() CopyID {
	return e.CopyID
}
