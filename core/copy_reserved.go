package core

import (
	"time"
)

// CopyReservedEventType is the event type identifier.
const CopyReservedEventType = "CopyReserved"

// CopyReserved represents when a reader reserves an available copy.
type CopyReserved struct {
	EventType  string
	CopyID     CopyID
	ReaderID   ReaderID
	OccurredAt OccurredAt
}

// BuildCopyReserved creates a new CopyReserved event.
func BuildCopyReserved(copyID CopyID, readerID ReaderID, occurredAt time.Time) CopyReserved {
	return CopyReserved{
		EventType:  CopyReservedEventType,
		CopyID:     copyID,
		ReaderID:   readerID,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e CopyReserved) IsEventType() string {
	return CopyReservedEventType
}

// HasOccurredAt returns when this event occurred.
func (e CopyReserved) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// ConcernsCopy returns the reserved copy.
func (e CopyReserved) ConcernsCopy() CopyID {
	return e.CopyID
}
