package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/features/query/averagefineofreader"
	"github.com/AntonStoeckl/library-loans/features/query/copyavailability"
	"github.com/AntonStoeckl/library-loans/features/query/listcopies"
)

// LoanService is what the handlers need from the loan coordinator.
type LoanService interface {
	Checkout(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Borrow, error)
	Return(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Borrow, error)
	Reserve(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Reserve, error)
	Cancel(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Reserve, error)

	Availability(ctx context.Context, copyID core.CopyID) (copyavailability.CopyAvailability, error)
	ActiveBorrowsOf(ctx context.Context, readerID core.ReaderID) (core.Borrows, error)
	BorrowHistoryOf(ctx context.Context, readerID core.ReaderID) (core.Borrows, error)
	ActiveReservesOf(ctx context.Context, readerID core.ReaderID) (core.Reserves, error)
	ReserveHistoryOf(ctx context.Context, readerID core.ReaderID) (core.Reserves, error)
	AverageFineOf(ctx context.Context, readerID core.ReaderID) (averagefineofreader.AverageFine, error)
	ListCopies(ctx context.Context, query listcopies.Query) (listcopies.CopyListing, error)

	RegisterReader(ctx context.Context, name, address, phone string) (core.Reader, error)
	AddCopy(ctx context.Context, bookID, branchID uuid.UUID) (core.Copy, error)
}
