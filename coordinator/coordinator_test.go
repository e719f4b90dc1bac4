package coordinator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/coordinator"
	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/features/query/listcopies"
	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/shell"
	. "github.com/AntonStoeckl/library-loans/testutil/fixtures" //nolint:revive
	"github.com/AntonStoeckl/library-loans/testutil/observability/testdoubles"
	"github.com/AntonStoeckl/library-loans/testutil/storewrapper"
)

type publisherSpy struct {
	mu     sync.Mutex
	events core.LoanEvents
	err    error
}

func (p *publisherSpy) Publish(_ context.Context, events ...core.LoanEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, events...)

	return nil
}

func (p *publisherSpy) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.IsEventType())
	}

	return types
}

func newCoordinator(t *testing.T, store loanstore.Store, opts ...coordinator.Option) *coordinator.LoanCoordinator {
	t.Helper()

	c, err := coordinator.NewLoanCoordinator(store, opts...)
	require.NoError(t, err)

	return c
}

func Test_LoanCoordinator_StateMachine(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	readerA := GivenReaderRegistered(t, ctx, store)
	readerB := GivenReaderRegistered(t, ctx, store)
	bookCopy := GivenCopyAdded(t, ctx, store)
	c := newCoordinator(t, store, coordinator.WithClock(FixedClock(FixedTime())))

	// Available --reserve(A)--> Reserved(A)
	_, err := c.Reserve(ctx, bookCopy.ID, readerA.ID)
	require.NoError(t, err)

	availability, err := c.Availability(ctx, bookCopy.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusReserved, availability.Status)
	assert.Equal(t, readerA.ID, availability.ReaderID)

	// Reserved(A) --checkout(B)--> rejected, no borrow row
	_, err = c.Checkout(ctx, bookCopy.ID, readerB.ID)
	require.ErrorIs(t, err, core.ErrCopyUnavailable)

	borrowsOfB, err := c.ActiveBorrowsOf(ctx, readerB.ID)
	require.NoError(t, err)
	assert.Empty(t, borrowsOfB)

	// Reserved(A) --checkout(A)--> Borrowed(A), reservation fulfilled
	_, err = c.Checkout(ctx, bookCopy.ID, readerA.ID)
	require.NoError(t, err)

	reservesOfA, err := c.ActiveReservesOf(ctx, readerA.ID)
	require.NoError(t, err)
	assert.Empty(t, reservesOfA)

	borrowsOfA, err := c.ActiveBorrowsOf(ctx, readerA.ID)
	require.NoError(t, err)
	assert.Len(t, borrowsOfA, 1)

	// Borrowed(A) --reserve(any)--> rejected
	_, err = c.Reserve(ctx, bookCopy.ID, readerB.ID)
	require.ErrorIs(t, err, core.ErrCopyUnavailable)

	_, err = c.Reserve(ctx, bookCopy.ID, readerA.ID)
	require.ErrorIs(t, err, core.ErrCopyUnavailable)

	// Borrowed(A) --return(A)--> Available
	returned, err := c.Return(ctx, bookCopy.ID, readerA.ID)
	require.NoError(t, err)
	assert.True(t, returned.Fine.IsDefined())
	assert.Equal(t, "0.0", returned.Fine.String())

	availability, err = c.Availability(ctx, bookCopy.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusAvailable, availability.Status)

	// a second return is rejected
	_, err = c.Return(ctx, bookCopy.ID, readerA.ID)
	require.ErrorIs(t, err, core.ErrNoActiveBorrow)
}

func Test_LoanCoordinator_ReserveThenCancel(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	reader := GivenReaderRegistered(t, ctx, store)
	bookCopy := GivenCopyAdded(t, ctx, store)
	c := newCoordinator(t, store)

	_, err := c.Reserve(ctx, bookCopy.ID, reader.ID)
	require.NoError(t, err)

	// act
	canceled, err := c.Cancel(ctx, bookCopy.ID, reader.ID)

	// assert
	require.NoError(t, err)
	assert.False(t, canceled.Active)

	_, err = c.Cancel(ctx, bookCopy.ID, reader.ID)
	require.ErrorIs(t, err, core.ErrNoActiveReservation)

	reserver, found, err := c.ActiveReserver(ctx, bookCopy.ID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, core.Reader{}, reserver)

	history, err := c.ReserveHistoryOf(ctx, reader.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func Test_LoanCoordinator_ActiveBorrowerAndReserver(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	borrower := GivenReaderRegistered(t, ctx, store)
	reserver := GivenReaderRegistered(t, ctx, store)
	borrowed := GivenCopyAdded(t, ctx, store)
	reserved := GivenCopyAdded(t, ctx, store)
	c := newCoordinator(t, store)

	_, err := c.Checkout(ctx, borrowed.ID, borrower.ID)
	require.NoError(t, err)
	_, err = c.Reserve(ctx, reserved.ID, reserver.ID)
	require.NoError(t, err)

	// act
	activeBorrower, borrowerFound, borrowerErr := c.ActiveBorrower(ctx, borrowed.ID)
	activeReserver, reserverFound, reserverErr := c.ActiveReserver(ctx, reserved.ID)
	_, noBorrower, noBorrowerErr := c.ActiveBorrower(ctx, reserved.ID)

	// assert
	require.NoError(t, borrowerErr)
	assert.True(t, borrowerFound)
	assert.Equal(t, borrower.ID, activeBorrower.ID)

	require.NoError(t, reserverErr)
	assert.True(t, reserverFound)
	assert.Equal(t, reserver.ID, activeReserver.ID)

	require.NoError(t, noBorrowerErr)
	assert.False(t, noBorrower)
}

func Test_LoanCoordinator_FinesAndAverage(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	reader := GivenReaderRegistered(t, ctx, store)
	first := GivenCopyAdded(t, ctx, store)
	second := GivenCopyAdded(t, ctx, store)

	now := FixedTime()
	c := newCoordinator(t, store, coordinator.WithClock(func() time.Time { return now }))

	_, err := c.Checkout(ctx, first.ID, reader.ID)
	require.NoError(t, err)
	_, err = c.Checkout(ctx, second.ID, reader.ID)
	require.NoError(t, err)

	// act
	now = FixedTime().AddDate(0, 0, 21)
	firstReturn, err := c.Return(ctx, first.ID, reader.ID)
	require.NoError(t, err)

	now = FixedTime().AddDate(0, 0, 25)
	secondReturn, err := c.Return(ctx, second.ID, reader.ID)
	require.NoError(t, err)

	average, err := c.AverageFineOf(ctx, reader.ID)

	// assert
	assert.Equal(t, "0.2", firstReturn.Fine.String())
	assert.Equal(t, "1.0", secondReturn.Fine.String())

	require.NoError(t, err)
	assert.Equal(t, "0.6", average.Average.String())
	assert.Equal(t, 2, average.ReturnedBorrows)

	history, err := c.BorrowHistoryOf(ctx, reader.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func Test_LoanCoordinator_LimitsFromPolicy(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	reader := GivenReaderRegistered(t, ctx, store)
	c := newCoordinator(t, store, coordinator.WithPolicy(core.LoanPolicy{MaxActiveBorrows: 1, MaxActiveReserves: 1}))

	_, err := c.Checkout(ctx, GivenCopyAdded(t, ctx, store).ID, reader.ID)
	require.NoError(t, err)
	_, err = c.Reserve(ctx, GivenCopyAdded(t, ctx, store).ID, reader.ID)
	require.NoError(t, err)

	// act
	_, borrowErr := c.Checkout(ctx, GivenCopyAdded(t, ctx, store).ID, reader.ID)
	_, reserveErr := c.Reserve(ctx, GivenCopyAdded(t, ctx, store).ID, reader.ID)

	// assert
	require.ErrorIs(t, borrowErr, core.ErrOverBorrowLimit)
	require.ErrorIs(t, reserveErr, core.ErrOverReserveLimit)
}

func Test_NewLoanCoordinator_InvalidPolicy(t *testing.T) {
	// arrange
	store := storewrapper.CreateWrapper(t, storewrapper.KindMemory).Store()

	// act
	_, err := coordinator.NewLoanCoordinator(store, coordinator.WithPolicy(core.LoanPolicy{}))

	// assert
	require.ErrorIs(t, err, core.ErrInvalidLoanPolicy)
}

func Test_LoanCoordinator_NotFound(t *testing.T) {
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	reader := GivenReaderRegistered(t, ctx, store)
	bookCopy := GivenCopyAdded(t, ctx, store)
	c := newCoordinator(t, store)

	unknown := uuid.New()

	testCases := []struct {
		name     string
		call     func() error
		expected error
	}{
		{
			name:     "checkout with unknown reader",
			call:     func() error { _, err := c.Checkout(ctx, bookCopy.ID, unknown); return err },
			expected: core.ErrReaderNotFound,
		},
		{
			name:     "checkout of unknown copy",
			call:     func() error { _, err := c.Checkout(ctx, unknown, reader.ID); return err },
			expected: core.ErrCopyNotFound,
		},
		{
			name:     "unknown reader wins over unknown copy",
			call:     func() error { _, err := c.Return(ctx, unknown, unknown); return err },
			expected: core.ErrReaderNotFound,
		},
		{
			name:     "reserve of unknown copy",
			call:     func() error { _, err := c.Reserve(ctx, unknown, reader.ID); return err },
			expected: core.ErrCopyNotFound,
		},
		{
			name:     "cancel with unknown reader",
			call:     func() error { _, err := c.Cancel(ctx, bookCopy.ID, unknown); return err },
			expected: core.ErrReaderNotFound,
		},
		{
			name:     "availability of unknown copy",
			call:     func() error { _, err := c.Availability(ctx, unknown); return err },
			expected: core.ErrCopyNotFound,
		},
		{
			name:     "borrows of unknown reader",
			call:     func() error { _, err := c.ActiveBorrowsOf(ctx, unknown); return err },
			expected: core.ErrReaderNotFound,
		},
		{
			name:     "average fine of unknown reader",
			call:     func() error { _, err := c.AverageFineOf(ctx, unknown); return err },
			expected: core.ErrReaderNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			err := tc.call()

			// assert
			require.ErrorIs(t, err, tc.expected)
			assert.ErrorIs(t, err, loanstore.ErrNotFound)
			assert.False(t, core.IsBusinessRejection(err))
		})
	}
}

func Test_LoanCoordinator_PublishesCommittedEvents(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	readerA := GivenReaderRegistered(t, ctx, store)
	readerB := GivenReaderRegistered(t, ctx, store)
	bookCopy := GivenCopyAdded(t, ctx, store)

	publisher := &publisherSpy{}
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	c := newCoordinator(t, store, coordinator.WithPublisher(publisher), coordinator.WithMetrics(metrics))

	// act
	_, err := c.Reserve(ctx, bookCopy.ID, readerA.ID)
	require.NoError(t, err)

	_, err = c.Checkout(ctx, bookCopy.ID, readerB.ID)
	require.Error(t, err)

	_, err = c.Checkout(ctx, bookCopy.ID, readerA.ID)
	require.NoError(t, err)

	_, err = c.Return(ctx, bookCopy.ID, readerA.ID)
	require.NoError(t, err)

	// assert
	assert.Equal(t, []string{
		core.CopyReservedEventType,
		core.ReservationFulfilledEventType,
		core.CopyCheckedOutEventType,
		core.CopyReturnedEventType,
	}, publisher.eventTypes(), "rejected commands publish nothing")

	assert.Equal(t, 4, metrics.HasCounterRecordForMetric(shell.LoanEventsPublishedMetric).
		WithStatus(shell.StatusSuccess).Count())
	assert.True(t, metrics.HasCounterRecordForMetric(shell.CommandHandlerBusinessRejectionsMetric).
		WithLabel(shell.LogAttrCommandType, "CheckoutCopy").Assert())
}

func Test_LoanCoordinator_PublishFailureKeepsCommittedOperation(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	reader := GivenReaderRegistered(t, ctx, store)
	bookCopy := GivenCopyAdded(t, ctx, store)

	publisher := &publisherSpy{err: errors.New("broker unavailable")}
	metrics := testdoubles.NewMetricsCollectorSpy(true)
	logger := testdoubles.NewContextualLoggerSpy(true)
	c := newCoordinator(t, store,
		coordinator.WithPublisher(publisher),
		coordinator.WithMetrics(metrics),
		coordinator.WithContextualLogger(logger))

	// act
	borrow, err := c.Checkout(ctx, bookCopy.ID, reader.ID)

	// assert
	require.NoError(t, err)

	borrower, found, err := c.ActiveBorrower(ctx, bookCopy.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, reader.ID, borrower.ID)
	assert.Equal(t, reader.ID, borrow.ReaderID)

	assert.True(t, logger.HasLogWithArg("error", shell.LogMsgLoanEventPublishFailed,
		shell.LogAttrEventType, core.CopyCheckedOutEventType))
	assert.True(t, metrics.HasCounterRecordForMetric(shell.LoanEventsPublishedMetric).
		WithStatus(shell.StatusError).
		WithLabel(shell.LogAttrEventType, core.CopyCheckedOutEventType).Assert())
}

func Test_LoanCoordinator_RegisterReaderAndAddCopy(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	c := newCoordinator(t, store)
	bookID, branchID := GivenUniqueID(t), GivenUniqueID(t)

	// act
	reader, readerErr := c.RegisterReader(ctx, "Ada Lovelace", "12 St James's Square", "+442071234567")
	first, firstErr := c.AddCopy(ctx, bookID, branchID)
	second, secondErr := c.AddCopy(ctx, bookID, branchID)

	// assert
	require.NoError(t, readerErr)
	require.NoError(t, firstErr)
	require.NoError(t, secondErr)

	borrows, err := c.ActiveBorrowsOf(ctx, reader.ID)
	require.NoError(t, err)
	assert.Empty(t, borrows)

	assert.Equal(t, first.Number+1, second.Number)
}

func Test_LoanCoordinator_ListCopies(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).Store()
	c := newCoordinator(t, store)
	reader := GivenReaderRegistered(t, ctx, store)
	bookID, branchID := GivenUniqueID(t), GivenUniqueID(t)

	borrowed, err := c.AddCopy(ctx, bookID, branchID)
	require.NoError(t, err)
	free, err := c.AddCopy(ctx, bookID, branchID)
	require.NoError(t, err)

	_, err = c.Checkout(ctx, borrowed.ID, reader.ID)
	require.NoError(t, err)

	// act
	all, allErr := c.ListCopies(ctx, listcopies.BuildQuery().OfBook(bookID))
	available, availableErr := c.ListCopies(ctx, listcopies.BuildQuery().OfBook(bookID).OnlyAvailable(true))

	// assert
	require.NoError(t, allErr)
	assert.Equal(t, 2, all.Count)

	require.NoError(t, availableErr)
	require.Len(t, available.Copies, 1)
	assert.Equal(t, free.ID, available.Copies[0].CopyID)
	assert.False(t, available.Copies[0].IsBorrowed)
}
