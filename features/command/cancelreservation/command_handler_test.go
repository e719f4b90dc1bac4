package cancelreservation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/features/command/cancelreservation"
	"github.com/AntonStoeckl/library-loans/loanstore"
	. "github.com/AntonStoeckl/library-loans/testutil/fixtures" //nolint:revive
	"github.com/AntonStoeckl/library-loans/testutil/storewrapper"
)

func Test_CommandHandler_Handle_Success(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	handler := cancelreservation.NewCommandHandler(store)

	reader := GivenReaderRegistered(t, ctx, store)
	bookCopy := GivenCopyAdded(t, ctx, store)
	reserve := GivenCopyReserved(t, ctx, store, bookCopy, reader, FixedTime())

	// act
	result, err := handler.Handle(ctx, cancelreservation.BuildCommand(bookCopy.ID, reader.ID, FixedTime()))

	// assert
	require.NoError(t, err)
	assert.Equal(t, reserve.ID, result.Record.ID)
	assert.False(t, result.Record.Active)

	availability, err := store.LoadAvailability(ctx, bookCopy.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusAvailable, availability.Status())

	history, err := store.ReservesOfReader(ctx, reader.ID, loanstore.ScopeAll)
	require.NoError(t, err)
	assert.Len(t, history, 1, "the reservation stays in the history")
}

func Test_CommandHandler_Handle_Rejected_WithoutReservation(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	handler := cancelreservation.NewCommandHandler(store)

	reader := GivenReaderRegistered(t, ctx, store)
	bookCopy := GivenCopyAdded(t, ctx, store)

	// act
	result, err := handler.Handle(ctx, cancelreservation.BuildCommand(bookCopy.ID, reader.ID, FixedTime()))

	// assert
	assert.ErrorIs(t, err, core.ErrNoActiveReservation)
	assert.True(t, result.Rejected)
}
