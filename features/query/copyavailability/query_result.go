package copyavailability

import (
	"github.com/AntonStoeckl/library-loans/core"
)

// CopyAvailability is the derived state of a copy with the record that causes it.
type CopyAvailability struct {
	CopyID core.CopyID
	Status core.CopyStatus
	// ReaderID is the borrower or reserver, uuid.Nil while the copy is available.
	ReaderID core.ReaderID
	Borrow   *core.Borrow
	Reserve  *core.Reserve
}

// ActiveBorrower returns the reader that has the copy borrowed, if any.
func (a CopyAvailability) ActiveBorrower() (core.ReaderID, bool) {
	if a.Borrow == nil {
		return core.ReaderID{}, false
	}

	return a.Borrow.ReaderID, true
}

// ActiveReserver returns the reader that has the copy reserved, if any.
func (a CopyAvailability) ActiveReserver() (core.ReaderID, bool) {
	if a.Reserve == nil {
		return core.ReaderID{}, false
	}

	return a.Reserve.ReaderID, true
}
