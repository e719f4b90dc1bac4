package core

import (
	"time"

	"github.com/google/uuid"
)

// Reserve is a reader's claim on a copy. Only the reader holding an active Reserve may check the copy out.
type Reserve struct {
	ID         uuid.UUID
	CopyID     CopyID
	ReaderID   ReaderID
	ReservedAt time.Time
	Active     bool
}

// Reserves is a slice of Reserve records.
type Reserves = []Reserve

// Deactivated returns a copy of the reservation with the active flag cleared.
func (r Reserve) Deactivated() Reserve {
	r.Active = false
	return r
}
