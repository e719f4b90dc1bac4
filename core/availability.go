package core

import "github.com/google/uuid"

// CopyStatus is the derived state of a copy. It is never stored, only computed from
// the copy's active borrow and active reservation.
type CopyStatus int

const (
	// StatusAvailable means nobody borrowed or reserved the copy.
	StatusAvailable CopyStatus = iota

	// StatusReserved means one reader holds an active reservation.
	StatusReserved

	// StatusBorrowed means one reader holds an active borrow.
	StatusBorrowed
)

func (s CopyStatus) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusReserved:
		return "reserved"
	case StatusBorrowed:
		return "borrowed"
	default:
		return "unknown"
	}
}

// CopyAvailability is a point-in-time view of who holds a copy.
type CopyAvailability struct {
	CopyID        CopyID
	ActiveBorrow  *Borrow
	ActiveReserve *Reserve
}

// AvailabilityOf builds a CopyAvailability from the copy's active borrow and reservation, either may be nil.
func AvailabilityOf(copyID CopyID, activeBorrow *Borrow, activeReserve *Reserve) CopyAvailability {
	return CopyAvailability{
		CopyID:        copyID,
		ActiveBorrow:  activeBorrow,
		ActiveReserve: activeReserve,
	}
}

// Status derives the CopyStatus. An active borrow wins over a reservation.
func (a CopyAvailability) Status() CopyStatus {
	switch {
	case a.ActiveBorrow != nil:
		return StatusBorrowed
	case a.ActiveReserve != nil:
		return StatusReserved
	default:
		return StatusAvailable
	}
}

// Holder returns the reader that borrowed or reserved the copy, or uuid.Nil when it is available.
func (a CopyAvailability) Holder() ReaderID {
	switch a.Status() {
	case StatusBorrowed:
		return a.ActiveBorrow.ReaderID
	case StatusReserved:
		return a.ActiveReserve.ReaderID
	default:
		return uuid.Nil
	}
}

// ActiveBorrower returns the reader of the active borrow, if any.
func (a CopyAvailability) ActiveBorrower() (ReaderID, bool) {
	if a.ActiveBorrow == nil {
		return uuid.Nil, false
	}

	return a.ActiveBorrow.ReaderID, true
}

// ActiveReserver returns the reader of the active reservation, if any.
func (a CopyAvailability) ActiveReserver() (ReaderID, bool) {
	if a.ActiveReserve == nil {
		return uuid.Nil, false
	}

	return a.ActiveReserve.ReaderID, true
}

// CopyOverview is a copy together with who holds it.
type CopyOverview struct {
	Copy         Copy
	Availability CopyAvailability
}

// ReaderActivity holds the derived counts of a reader's active borrows and reservations.
type ReaderActivity struct {
	ReaderID       ReaderID
	ActiveBorrows  int
	ActiveReserves int
}
