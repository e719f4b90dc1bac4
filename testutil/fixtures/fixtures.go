// Package fixtures arranges readers, copies, borrows and reservations for tests.
package fixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

var readerSeq atomic.Int64

// FixedTime is the base time for tests that need a deterministic clock.
func FixedTime() time.Time {
	return time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)
}

// FixedClock returns a clock that always answers at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// GivenUniqueID returns a fresh UUID v7.
func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id
}

// GivenReaderRegistered registers a reader with a generated name.
func GivenReaderRegistered(t testing.TB, ctx context.Context, store loanstore.CatalogStore) core.Reader {
	n := readerSeq.Add(1)

	reader, err := store.RegisterReader(ctx, fmt.Sprintf("Reader %d", n), "Main Street 1", "+4930123456")
	require.NoError(t, err, "error in arranging test data")

	return reader
}

// GivenCopyAdded adds the first copy of a new book at a new branch.
func GivenCopyAdded(t testing.TB, ctx context.Context, store loanstore.CatalogStore) core.Copy {
	c, err := store.AddCopy(ctx, GivenUniqueID(t), GivenUniqueID(t))
	require.NoError(t, err, "error in arranging test data")

	return c
}

// GivenCopyBorrowed writes an active borrow directly, bypassing the business rules.
func GivenCopyBorrowed(
	t testing.TB,
	ctx context.Context,
	store loanstore.UnitOfWorker,
	c core.Copy,
	reader core.Reader,
	at time.Time,
) core.Borrow {
	var borrow core.Borrow

	err := store.WithinUnitOfWork(ctx, loanstore.LockKey{CopyID: c.ID, ReaderID: reader.ID},
		func(ctx context.Context, uow loanstore.UnitOfWork) error {
			var err error
			borrow, err = uow.InsertBorrow(ctx, c.ID, reader.ID, at)

			return err
		})
	require.NoError(t, err, "error in arranging test data")

	return borrow
}

// GivenCopyReserved writes an active reservation directly, bypassing the business rules.
func GivenCopyReserved(
	t testing.TB,
	ctx context.Context,
	store loanstore.UnitOfWorker,
	c core.Copy,
	reader core.Reader,
	at time.Time,
) core.Reserve {
	var reserve core.Reserve

	err := store.WithinUnitOfWork(ctx, loanstore.LockKey{CopyID: c.ID, ReaderID: reader.ID},
		func(ctx context.Context, uow loanstore.UnitOfWork) error {
			var err error
			reserve, err = uow.InsertReserve(ctx, c.ID, reader.ID, at)

			return err
		})
	require.NoError(t, err, "error in arranging test data")

	return reserve
}

// GivenCopyReturned closes an active borrow at returnedAt with the fine the rules would charge.
func GivenCopyReturned(
	t testing.TB,
	ctx context.Context,
	store loanstore.UnitOfWorker,
	borrow core.Borrow,
	returnedAt time.Time,
) core.Borrow {
	returned := borrow.ReturnedOn(returnedAt)

	err := store.WithinUnitOfWork(ctx, loanstore.LockKey{CopyID: borrow.CopyID, ReaderID: borrow.ReaderID},
		func(ctx context.Context, uow loanstore.UnitOfWork) error {
			var err error
			returned, err = uow.CloseBorrow(ctx, borrow.ID, *returned.ReturnedAt, returned.Fine)

			return err
		})
	require.NoError(t, err, "error in arranging test data")

	return returned
}
