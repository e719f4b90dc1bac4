package sqlengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/loanstore/sqlengine"
	"github.com/AntonStoeckl/library-loans/testutil/fixtures"
)

func Test_ListCopies_DerivesAvailabilityPerCopy(t *testing.T) {
	// setup
	ctx := context.Background()

	store, err := sqlengine.NewStoreFromSQLite(openSQLite(t))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	// arrange
	borrower := fixtures.GivenReaderRegistered(t, ctx, store)
	reserver := fixtures.GivenReaderRegistered(t, ctx, store)
	bookID, branchID := fixtures.GivenUniqueID(t), fixtures.GivenUniqueID(t)

	borrowed, err := store.AddCopy(ctx, bookID, branchID)
	require.NoError(t, err)
	reserved, err := store.AddCopy(ctx, bookID, branchID)
	require.NoError(t, err)
	free, err := store.AddCopy(ctx, bookID, branchID)
	require.NoError(t, err)
	otherBook := fixtures.GivenCopyAdded(t, ctx, store)

	fixtures.GivenCopyBorrowed(t, ctx, store, borrowed, borrower, fixtures.FixedTime())
	fixtures.GivenCopyReserved(t, ctx, store, reserved, reserver, fixtures.FixedTime())
	fixtures.GivenCopyBorrowed(t, ctx, store, otherBook, borrower, fixtures.FixedTime())

	available, held := true, false

	// act
	all, allErr := store.ListCopies(ctx, loanstore.CopyFilter{BookID: &bookID})
	onlyFree, freeErr := store.ListCopies(ctx, loanstore.CopyFilter{BookID: &bookID, Available: &available})
	taken, takenErr := store.ListCopies(ctx, loanstore.CopyFilter{BookID: &bookID, Available: &held})

	// assert
	require.NoError(t, allErr)
	require.Len(t, all, 3)
	assert.Equal(t, borrowed.ID, all[0].Copy.ID)
	assert.Equal(t, core.StatusBorrowed, all[0].Availability.Status())
	assert.Equal(t, core.StatusReserved, all[1].Availability.Status())
	assert.Equal(t, core.StatusAvailable, all[2].Availability.Status())

	require.NoError(t, freeErr)
	require.Len(t, onlyFree, 1)
	assert.Equal(t, free.ID, onlyFree[0].Copy.ID)

	require.NoError(t, takenErr)
	assert.Len(t, taken, 2)
}
