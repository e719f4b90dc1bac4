package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/features/command/cancelreservation"
	"github.com/AntonStoeckl/library-loans/features/command/checkoutcopy"
	"github.com/AntonStoeckl/library-loans/features/command/reservecopy"
	"github.com/AntonStoeckl/library-loans/features/command/returncopy"
	"github.com/AntonStoeckl/library-loans/features/query/activeborrowsofreader"
	"github.com/AntonStoeckl/library-loans/features/query/activereservesofreader"
	"github.com/AntonStoeckl/library-loans/features/query/averagefineofreader"
	"github.com/AntonStoeckl/library-loans/features/query/copyavailability"
	"github.com/AntonStoeckl/library-loans/features/query/listcopies"
	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/shell"
	"github.com/AntonStoeckl/library-loans/shell/observable"
)

// LoanCoordinator is the entry point for all loan operations and reads.
type LoanCoordinator struct {
	store        loanstore.Store
	policy       core.LoanPolicy
	clock        func() time.Time
	publisher    core.LoanEventPublisher
	retryOptions []shell.RetryOption

	metricsCollector shell.MetricsCollector
	tracingCollector shell.TracingCollector
	contextualLogger shell.ContextualLogger
	logger           shell.Logger

	checkoutHandler *observable.CommandWrapper[checkoutcopy.Command, core.Borrow]
	returnHandler   *observable.CommandWrapper[returncopy.Command, core.Borrow]
	reserveHandler  *observable.CommandWrapper[reservecopy.Command, core.Reserve]
	cancelHandler   *observable.CommandWrapper[cancelreservation.Command, core.Reserve]

	availabilityHandler *observable.QueryWrapper[copyavailability.Query, copyavailability.CopyAvailability]
	borrowsHandler      *observable.QueryWrapper[activeborrowsofreader.Query, activeborrowsofreader.BorrowsOfReader]
	reservesHandler     *observable.QueryWrapper[activereservesofreader.Query, activereservesofreader.ReservesOfReader]
	averageFineHandler  *observable.QueryWrapper[averagefineofreader.Query, averagefineofreader.AverageFine]
	listCopiesHandler   *observable.QueryWrapper[listcopies.Query, listcopies.CopyListing]
}

// NewLoanCoordinator wires all command and query handlers on top of the store.
func NewLoanCoordinator(store loanstore.Store, opts ...Option) (*LoanCoordinator, error) {
	c := &LoanCoordinator{
		store:     store,
		policy:    core.DefaultLoanPolicy(),
		clock:     time.Now,
		publisher: DiscardPublisher{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.policy.Validate(); err != nil {
		return nil, err
	}

	var err error

	c.checkoutHandler, err = observable.NewCommandWrapper[checkoutcopy.Command, core.Borrow](
		checkoutcopy.NewCommandHandler(store,
			checkoutcopy.WithPolicy(c.policy),
			checkoutcopy.WithRetryOptions(c.retryOptions...)),
		commandOptions[checkoutcopy.Command, core.Borrow](c)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CheckoutCopy handler: %w", err)
	}

	c.returnHandler, err = observable.NewCommandWrapper[returncopy.Command, core.Borrow](
		returncopy.NewCommandHandler(store, returncopy.WithRetryOptions(c.retryOptions...)),
		commandOptions[returncopy.Command, core.Borrow](c)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ReturnCopy handler: %w", err)
	}

	c.reserveHandler, err = observable.NewCommandWrapper[reservecopy.Command, core.Reserve](
		reservecopy.NewCommandHandler(store,
			reservecopy.WithPolicy(c.policy),
			reservecopy.WithRetryOptions(c.retryOptions...)),
		commandOptions[reservecopy.Command, core.Reserve](c)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ReserveCopy handler: %w", err)
	}

	c.cancelHandler, err = observable.NewCommandWrapper[cancelreservation.Command, core.Reserve](
		cancelreservation.NewCommandHandler(store, cancelreservation.WithRetryOptions(c.retryOptions...)),
		commandOptions[cancelreservation.Command, core.Reserve](c)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CancelReservation handler: %w", err)
	}

	c.availabilityHandler, err = observable.NewQueryWrapper[copyavailability.Query, copyavailability.CopyAvailability](
		copyavailability.NewQueryHandler(store),
		queryOptions[copyavailability.Query, copyavailability.CopyAvailability](c)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CopyAvailability handler: %w", err)
	}

	c.borrowsHandler, err = observable.NewQueryWrapper[activeborrowsofreader.Query, activeborrowsofreader.BorrowsOfReader](
		activeborrowsofreader.NewQueryHandler(store),
		queryOptions[activeborrowsofreader.Query, activeborrowsofreader.BorrowsOfReader](c)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ActiveBorrowsOfReader handler: %w", err)
	}

	c.reservesHandler, err = observable.NewQueryWrapper[activereservesofreader.Query, activereservesofreader.ReservesOfReader](
		activereservesofreader.NewQueryHandler(store),
		queryOptions[activereservesofreader.Query, activereservesofreader.ReservesOfReader](c)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ActiveReservesOfReader handler: %w", err)
	}

	c.averageFineHandler, err = observable.NewQueryWrapper[averagefineofreader.Query, averagefineofreader.AverageFine](
		averagefineofreader.NewQueryHandler(store),
		queryOptions[averagefineofreader.Query, averagefineofreader.AverageFine](c)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AverageFineOfReader handler: %w", err)
	}

	c.listCopiesHandler, err = observable.NewQueryWrapper[listcopies.Query, listcopies.CopyListing](
		listcopies.NewQueryHandler(store),
		queryOptions[listcopies.Query, listcopies.CopyListing](c)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ListCopies handler: %w", err)
	}

	return c, nil
}

// Policy returns the limits the coordinator enforces.
func (c *LoanCoordinator) Policy() core.LoanPolicy {
	return c.policy
}

// Checkout lends the copy to the reader, fulfilling the reader's own reservation if there is one.
func (c *LoanCoordinator) Checkout(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Borrow, error) {
	if err := c.requireReaderAndCopy(ctx, readerID, copyID); err != nil {
		return core.Borrow{}, err
	}

	result, err := c.checkoutHandler.Handle(ctx, checkoutcopy.BuildCommand(copyID, readerID, c.now()))
	if err != nil {
		return core.Borrow{}, err
	}

	c.publish(ctx, result.Events)

	return result.Record, nil
}

// Return closes the reader's open borrow of the copy and charges the fine.
func (c *LoanCoordinator) Return(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Borrow, error) {
	if err := c.requireReaderAndCopy(ctx, readerID, copyID); err != nil {
		return core.Borrow{}, err
	}

	result, err := c.returnHandler.Handle(ctx, returncopy.BuildCommand(copyID, readerID, c.now()))
	if err != nil {
		return core.Borrow{}, err
	}

	c.publish(ctx, result.Events)

	return result.Record, nil
}

// Reserve puts an active reservation on an available copy.
func (c *LoanCoordinator) Reserve(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Reserve, error) {
	if err := c.requireReaderAndCopy(ctx, readerID, copyID); err != nil {
		return core.Reserve{}, err
	}

	result, err := c.reserveHandler.Handle(ctx, reservecopy.BuildCommand(copyID, readerID, c.now()))
	if err != nil {
		return core.Reserve{}, err
	}

	c.publish(ctx, result.Events)

	return result.Record, nil
}

// Cancel deactivates the reader's active reservation of the copy.
func (c *LoanCoordinator) Cancel(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Reserve, error) {
	if err := c.requireReaderAndCopy(ctx, readerID, copyID); err != nil {
		return core.Reserve{}, err
	}

	result, err := c.cancelHandler.Handle(ctx, cancelreservation.BuildCommand(copyID, readerID, c.now()))
	if err != nil {
		return core.Reserve{}, err
	}

	c.publish(ctx, result.Events)

	return result.Record, nil
}

// Availability returns the derived status of the copy.
func (c *LoanCoordinator) Availability(ctx context.Context, copyID core.CopyID) (copyavailability.CopyAvailability, error) {
	if err := c.requireCopy(ctx, copyID); err != nil {
		return copyavailability.CopyAvailability{}, err
	}

	return c.availabilityHandler.Handle(ctx, copyavailability.BuildQuery(copyID))
}

// ActiveBorrower returns the reader that currently has the copy borrowed.
func (c *LoanCoordinator) ActiveBorrower(ctx context.Context, copyID core.CopyID) (core.Reader, bool, error) {
	availability, err := c.Availability(ctx, copyID)
	if err != nil {
		return core.Reader{}, false, err
	}

	readerID, ok := availability.ActiveBorrower()
	if !ok {
		return core.Reader{}, false, nil
	}

	return c.readerOf(ctx, readerID)
}

// ActiveReserver returns the reader that currently holds the copy's active reservation.
func (c *LoanCoordinator) ActiveReserver(ctx context.Context, copyID core.CopyID) (core.Reader, bool, error) {
	availability, err := c.Availability(ctx, copyID)
	if err != nil {
		return core.Reader{}, false, err
	}

	readerID, ok := availability.ActiveReserver()
	if !ok {
		return core.Reader{}, false, nil
	}

	return c.readerOf(ctx, readerID)
}

// ActiveBorrowsOf lists the reader's open borrows, oldest first.
func (c *LoanCoordinator) ActiveBorrowsOf(ctx context.Context, readerID core.ReaderID) (core.Borrows, error) {
	return c.borrowsOf(ctx, activeborrowsofreader.BuildQuery(readerID))
}

// BorrowHistoryOf lists every borrow of the reader, returned ones included.
func (c *LoanCoordinator) BorrowHistoryOf(ctx context.Context, readerID core.ReaderID) (core.Borrows, error) {
	return c.borrowsOf(ctx, activeborrowsofreader.BuildHistoryQuery(readerID))
}

// ActiveReservesOf lists the reader's active reservations, oldest first.
func (c *LoanCoordinator) ActiveReservesOf(ctx context.Context, readerID core.ReaderID) (core.Reserves, error) {
	return c.reservesOf(ctx, activereservesofreader.BuildQuery(readerID))
}

// ReserveHistoryOf lists every reservation of the reader, inactive ones included.
func (c *LoanCoordinator) ReserveHistoryOf(ctx context.Context, readerID core.ReaderID) (core.Reserves, error) {
	return c.reservesOf(ctx, activereservesofreader.BuildHistoryQuery(readerID))
}

// AverageFineOf averages the fines of the reader's returned borrows.
func (c *LoanCoordinator) AverageFineOf(ctx context.Context, readerID core.ReaderID) (averagefineofreader.AverageFine, error) {
	if err := c.requireReader(ctx, readerID); err != nil {
		return averagefineofreader.AverageFine{}, err
	}

	return c.averageFineHandler.Handle(ctx, averagefineofreader.BuildQuery(readerID))
}

// ListCopies lists the copies passing the query's filter with their availability.
func (c *LoanCoordinator) ListCopies(ctx context.Context, query listcopies.Query) (listcopies.CopyListing, error) {
	return c.listCopiesHandler.Handle(ctx, query)
}

// RegisterReader adds a reader. The phone number is stored as given.
func (c *LoanCoordinator) RegisterReader(ctx context.Context, name, address, phone string) (core.Reader, error) {
	return c.store.RegisterReader(ctx, name, address, phone)
}

// AddCopy adds a physical copy of the book to the branch.
func (c *LoanCoordinator) AddCopy(ctx context.Context, bookID, branchID uuid.UUID) (core.Copy, error) {
	return c.store.AddCopy(ctx, bookID, branchID)
}

func (c *LoanCoordinator) borrowsOf(ctx context.Context, query activeborrowsofreader.Query) (core.Borrows, error) {
	if err := c.requireReader(ctx, query.ReaderID); err != nil {
		return nil, err
	}

	result, err := c.borrowsHandler.Handle(ctx, query)
	if err != nil {
		return nil, err
	}

	return result.Borrows, nil
}

func (c *LoanCoordinator) reservesOf(ctx context.Context, query activereservesofreader.Query) (core.Reserves, error) {
	if err := c.requireReader(ctx, query.ReaderID); err != nil {
		return nil, err
	}

	result, err := c.reservesHandler.Handle(ctx, query)
	if err != nil {
		return nil, err
	}

	return result.Reserves, nil
}

func (c *LoanCoordinator) readerOf(ctx context.Context, readerID core.ReaderID) (core.Reader, bool, error) {
	reader, err := c.store.GetReader(ctx, readerID)
	if err != nil {
		return core.Reader{}, false, notFoundAs(core.ErrReaderNotFound, err)
	}

	return reader, true, nil
}

// requireReaderAndCopy checks the reader first, a missing reader is reported even if the copy is missing too.
func (c *LoanCoordinator) requireReaderAndCopy(ctx context.Context, readerID core.ReaderID, copyID core.CopyID) error {
	if err := c.requireReader(ctx, readerID); err != nil {
		return err
	}

	return c.requireCopy(ctx, copyID)
}

func (c *LoanCoordinator) requireReader(ctx context.Context, readerID core.ReaderID) error {
	if _, err := c.store.GetReader(ctx, readerID); err != nil {
		return notFoundAs(core.ErrReaderNotFound, err)
	}

	return nil
}

func (c *LoanCoordinator) requireCopy(ctx context.Context, copyID core.CopyID) error {
	if _, err := c.store.GetCopy(ctx, copyID); err != nil {
		return notFoundAs(core.ErrCopyNotFound, err)
	}

	return nil
}

func notFoundAs(sentinel error, err error) error {
	if errors.Is(err, loanstore.ErrNotFound) {
		return errors.Join(sentinel, err)
	}

	return err
}

func (c *LoanCoordinator) now() time.Time {
	return c.clock().UTC()
}

// publish runs after commit and must not depend on the caller's cancellation.
func (c *LoanCoordinator) publish(ctx context.Context, events core.LoanEvents) {
	if len(events) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	err := c.publisher.Publish(ctx, events...)

	for _, event := range events {
		if err != nil {
			shell.RecordLoanEventPublished(ctx, c.metricsCollector, event.IsEventType(), shell.StatusError)
			shell.LogLoanEventPublishFailed(ctx, c.logger, c.contextualLogger, event.IsEventType(), err)

			continue
		}

		shell.RecordLoanEventPublished(ctx, c.metricsCollector, event.IsEventType(), shell.StatusSuccess)
	}
}

func commandOptions[C shell.Command, R any](c *LoanCoordinator) []observable.CommandOption[C, R] {
	var opts []observable.CommandOption[C, R]

	if c.metricsCollector != nil {
		opts = append(opts, observable.WithCommandMetrics[C, R](c.metricsCollector))
	}

	if c.tracingCollector != nil {
		opts = append(opts, observable.WithCommandTracing[C, R](c.tracingCollector))
	}

	if c.contextualLogger != nil {
		opts = append(opts, observable.WithCommandContextualLogging[C, R](c.contextualLogger))
	}

	if c.logger != nil {
		opts = append(opts, observable.WithCommandLogging[C, R](c.logger))
	}

	return opts
}

func queryOptions[Q shell.Query, R any](c *LoanCoordinator) []observable.QueryOption[Q, R] {
	var opts []observable.QueryOption[Q, R]

	if c.metricsCollector != nil {
		opts = append(opts, observable.WithQueryMetrics[Q, R](c.metricsCollector))
	}

	if c.tracingCollector != nil {
		opts = append(opts, observable.WithQueryTracing[Q, R](c.tracingCollector))
	}

	if c.contextualLogger != nil {
		opts = append(opts, observable.WithQueryContextualLogging[Q, R](c.contextualLogger))
	}

	if c.logger != nil {
		opts = append(opts, observable.WithQueryLogging[Q, R](c.logger))
	}

	return opts
}
