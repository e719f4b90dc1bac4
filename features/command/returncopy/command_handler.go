package returncopy

import (
	"context"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/shell"
)

// Store defines the interface needed by the CommandHandler.
type Store interface {
	WithinUnitOfWork(ctx context.Context, key loanstore.LockKey, fn loanstore.UnitOfWorkFunc) error
}

// CommandHandler closes the reader's borrow of the copy inside one unit of work.
type CommandHandler struct {
	store        Store
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(store Store, opts ...Option) CommandHandler {
	handler := CommandHandler{store: store}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the return and yields the closed borrow with its fine.
func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult[core.Borrow], error) {
	ctx = loanstore.WithStrongConsistency(ctx)

	var (
		borrow   core.Borrow
		events   core.LoanEvents
		rejected bool
	)

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		borrow, events, rejected, execErr = h.executeCommand(retryCtx, command)

		return execErr
	}, h.retryOptions...)

	switch {
	case rejected:
		return shell.NewRejectedResult[core.Borrow](retryMetrics), err
	case err != nil:
		return shell.NewErrorResult[core.Borrow](retryMetrics), err
	default:
		return shell.NewSuccessResult(borrow, events, retryMetrics), nil
	}
}

func (h CommandHandler) executeCommand(
	ctx context.Context,
	command Command,
) (borrow core.Borrow, events core.LoanEvents, rejected bool, err error) {
	key := loanstore.LockKey{CopyID: command.CopyID, ReaderID: command.ReaderID}

	err = h.store.WithinUnitOfWork(ctx, key, func(ctx context.Context, uow loanstore.UnitOfWork) error {
		availability, err := uow.LoadAvailability(ctx, command.CopyID)
		if err != nil {
			return err
		}

		result := Decide(availability, command)
		if result.IsRejected() {
			rejected = true
			return result.HasError()
		}

		for _, event := range result.Events {
			returned, ok := event.(core.CopyReturned)
			if !ok {
				return shell.ErrUnexpectedEvent
			}

			borrow, err = uow.CloseBorrow(ctx, returned.BorrowID, returned.OccurredAt, returned.Fine)
			if err != nil {
				return err
			}
		}

		events = result.Events

		return nil
	})

	return borrow, events, rejected, err
}
