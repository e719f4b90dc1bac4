package core

import (
	"time"

	"github.com/google/uuid"
)

// Borrow is a loan of a copy to a reader.
// It is active while ReturnedAt is nil. The Fine stays undefined until the copy comes back.
type Borrow struct {
	ID         uuid.UUID
	CopyID     CopyID
	ReaderID   ReaderID
	BorrowedAt time.Time
	ReturnedAt *time.Time
	Fine       Fine
}

// Borrows is a slice of Borrow records.
type Borrows = []Borrow

// IsActive reports whether the copy has not been returned yet.
func (b Borrow) IsActive() bool {
	return b.ReturnedAt == nil
}

// ReturnedOn returns a copy of the borrow closed at returnedAt with the fine computed from BorrowedAt.
func (b Borrow) ReturnedOn(returnedAt time.Time) Borrow {
	at := ToOccurredAt(returnedAt)
	b.ReturnedAt = &at
	b.Fine = CalculateFine(b.BorrowedAt, b.ReturnedAt)

	return b
}
