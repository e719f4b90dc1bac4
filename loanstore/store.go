package loanstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/core"
)

// Scope selects which borrows or reservations of a reader a read returns.
type Scope int

const (
	// ScopeAll returns the full history.
	ScopeAll Scope = iota

	// ScopeActive returns only open borrows or active reservations.
	ScopeActive
)

// CopyFilter narrows ListCopies. A nil field does not filter.
type CopyFilter struct {
	BookID   *uuid.UUID
	BranchID *uuid.UUID
	// Available true keeps copies nobody holds, false keeps borrowed or reserved ones.
	Available *bool
}

// Admits reports whether a copy of that book and branch in that state passes the filter.
func (f CopyFilter) Admits(c core.Copy, status core.CopyStatus) bool {
	if f.BookID != nil && *f.BookID != c.BookID {
		return false
	}

	if f.BranchID != nil && *f.BranchID != c.BranchID {
		return false
	}

	return f.Available == nil || *f.Available == (status == core.StatusAvailable)
}

// LockKey names the copy and the reader a unit of work operates on.
// Engines acquire the copy first and the reader second, so two units can never wait on each other in a cycle.
type LockKey struct {
	CopyID   core.CopyID
	ReaderID core.ReaderID
}

// UnitOfWorkFunc is the body of a unit of work. Returning an error rolls back everything it did.
type UnitOfWorkFunc func(ctx context.Context, uow UnitOfWork) error

// UnitOfWork is the view of the store inside one exclusive unit.
type UnitOfWork interface {
	// LoadAvailability returns the copy's active borrow and active reservation.
	LoadAvailability(ctx context.Context, copyID core.CopyID) (core.CopyAvailability, error)

	// LoadReaderActivity counts the reader's active borrows and reservations.
	LoadReaderActivity(ctx context.Context, readerID core.ReaderID) (core.ReaderActivity, error)

	// InsertBorrow creates an active borrow with a generated ID.
	InsertBorrow(ctx context.Context, copyID core.CopyID, readerID core.ReaderID, borrowedAt time.Time) (core.Borrow, error)

	// CloseBorrow sets the return time and fine of an active borrow.
	// It fails with ErrConcurrencyConflict if the borrow is not active anymore.
	CloseBorrow(ctx context.Context, borrowID uuid.UUID, returnedAt time.Time, fine core.Fine) (core.Borrow, error)

	// InsertReserve creates an active reservation with a generated ID.
	InsertReserve(ctx context.Context, copyID core.CopyID, readerID core.ReaderID, reservedAt time.Time) (core.Reserve, error)

	// DeactivateReserve clears the active flag of a reservation.
	// It fails with ErrConcurrencyConflict if the reservation is not active anymore.
	DeactivateReserve(ctx context.Context, reserveID uuid.UUID) (core.Reserve, error)
}

// UnitOfWorker runs loan operations as exclusive units.
type UnitOfWorker interface {
	WithinUnitOfWork(ctx context.Context, key LockKey, fn UnitOfWorkFunc) error
}

// ReadStore offers point-in-time reads outside a unit of work.
type ReadStore interface {
	GetReader(ctx context.Context, readerID core.ReaderID) (core.Reader, error)
	GetCopy(ctx context.Context, copyID core.CopyID) (core.Copy, error)
	LoadAvailability(ctx context.Context, copyID core.CopyID) (core.CopyAvailability, error)
	BorrowsOfReader(ctx context.Context, readerID core.ReaderID, scope Scope) (core.Borrows, error)
	ReservesOfReader(ctx context.Context, readerID core.ReaderID, scope Scope) (core.Reserves, error)
	// ListCopies returns the copies passing filter, ordered by book, branch and number.
	ListCopies(ctx context.Context, filter CopyFilter) ([]core.CopyOverview, error)
}

// CatalogStore creates the readers and copies the loan engine operates on.
type CatalogStore interface {
	RegisterReader(ctx context.Context, name, address, phone string) (core.Reader, error)
	AddCopy(ctx context.Context, bookID, branchID uuid.UUID) (core.Copy, error)
}

// Store is the full contract implemented by every engine.
type Store interface {
	UnitOfWorker
	ReadStore
	CatalogStore
}

// NewID generates the identity of a new record. UUIDv7 keeps inserts roughly ordered by time.
func NewID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}

	return id, nil
}
