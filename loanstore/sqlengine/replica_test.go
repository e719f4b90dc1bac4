package sqlengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/loanstore/sqlengine"
	"github.com/AntonStoeckl/library-loans/testutil/fixtures"
)

func Test_Reads_RouteByConsistencyLevel(t *testing.T) {
	// setup
	ctx := context.Background()
	primaryDB, replicaDB := openSQLite(t), openSQLite(t)

	store, err := sqlengine.NewStoreFromSQLiteWithReplica(primaryDB, replicaDB)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	replicaOnly, err := sqlengine.NewStoreFromSQLite(replicaDB)
	require.NoError(t, err)
	require.NoError(t, replicaOnly.Migrate(ctx))

	// arrange: the replica has not caught up with anything yet
	reader := fixtures.GivenReaderRegistered(t, ctx, store)
	bookCopy := fixtures.GivenCopyAdded(t, ctx, store)
	fixtures.GivenCopyBorrowed(t, ctx, store, bookCopy, reader, fixtures.FixedTime())

	// act
	fromPrimary, primaryErr := store.BorrowsOfReader(loanstore.WithStrongConsistency(ctx), reader.ID, loanstore.ScopeAll)
	byDefault, defaultErr := store.BorrowsOfReader(ctx, reader.ID, loanstore.ScopeAll)
	fromReplica, replicaErr := store.BorrowsOfReader(loanstore.WithEventualConsistency(ctx), reader.ID, loanstore.ScopeAll)

	// assert
	require.NoError(t, primaryErr)
	require.NoError(t, defaultErr)
	require.NoError(t, replicaErr)
	assert.Len(t, fromPrimary, 1)
	assert.Len(t, byDefault, 1)
	assert.Empty(t, fromReplica)
}

func Test_UnitOfWork_IgnoresEventualConsistency(t *testing.T) {
	// setup
	ctx := context.Background()
	primaryDB, replicaDB := openSQLite(t), openSQLite(t)

	store, err := sqlengine.NewStoreFromSQLiteWithReplica(primaryDB, replicaDB)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	reader := fixtures.GivenReaderRegistered(t, ctx, store)
	bookCopy := fixtures.GivenCopyAdded(t, ctx, store)

	// act
	fixtures.GivenCopyBorrowed(t, loanstore.WithEventualConsistency(ctx), store, bookCopy, reader, fixtures.FixedTime())

	// assert
	borrows, err := store.BorrowsOfReader(ctx, reader.ID, loanstore.ScopeActive)
	require.NoError(t, err)
	assert.Len(t, borrows, 1)
}
