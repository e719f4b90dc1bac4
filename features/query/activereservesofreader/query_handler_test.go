package activereservesofreader_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/features/query/activereservesofreader"
	"github.com/AntonStoeckl/library-loans/loanstore"
	. "github.com/AntonStoeckl/library-loans/testutil/fixtures" //nolint:revive
	"github.com/AntonStoeckl/library-loans/testutil/storewrapper"
)

func Test_QueryHandler_Handle_ActiveAndHistory(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	reader := GivenReaderRegistered(t, ctx, store)

	kept := GivenCopyAdded(t, ctx, store)
	canceled := GivenCopyAdded(t, ctx, store)

	GivenCopyReserved(t, ctx, store, kept, reader, FixedTime().Add(time.Minute))
	reserve := GivenCopyReserved(t, ctx, store, canceled, reader, FixedTime())

	err := store.WithinUnitOfWork(ctx, loanstore.LockKey{CopyID: canceled.ID, ReaderID: reader.ID},
		func(ctx context.Context, uow loanstore.UnitOfWork) error {
			_, err := uow.DeactivateReserve(ctx, reserve.ID)
			return err
		})
	require.NoError(t, err)

	handler := activereservesofreader.NewQueryHandler(store)

	// act
	active, activeErr := handler.Handle(ctx, activereservesofreader.BuildQuery(reader.ID))
	history, historyErr := handler.Handle(ctx, activereservesofreader.BuildHistoryQuery(reader.ID))

	// assert
	require.NoError(t, activeErr)
	require.NoError(t, historyErr)

	assert.Equal(t, 1, active.Count)
	assert.Equal(t, kept.ID, active.Reserves[0].CopyID)

	assert.Equal(t, 2, history.Count)
	assert.Equal(t, canceled.ID, history.Reserves[0].CopyID, "oldest reservation first")
	assert.False(t, history.Reserves[0].Active)
}
