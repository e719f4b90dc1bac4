package listcopies

import (
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/core"
)

// CopyListing is the query result.
type CopyListing struct {
	Copies []CopyItem
	Count  int
}

// CopyItem is one copy and its derived state.
type CopyItem struct {
	CopyID     core.CopyID
	BookID     uuid.UUID
	BranchID   uuid.UUID
	Number     int
	Status     core.CopyStatus
	IsBorrowed bool
	IsReserved bool
}
