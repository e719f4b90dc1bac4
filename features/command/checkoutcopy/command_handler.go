package checkoutcopy

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

// CommandHandler orchestrates Load -> Decide -> Apply inside one unit of work and retries concurrency conflicts.
// External wrappers handle all observability concerns.
type CommandHandler struct {
	store        Store
	policy       core.LoanPolicy
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithPolicy sets the per-reader limits. The default is core.DefaultLoanPolicy.
func WithPolicy(policy core.LoanPolicy) Option {
	return func(h *CommandHandler) {
		h.policy = policy
	}
}

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(store Store, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store:  store,
		policy: core.DefaultLoanPolicy(),
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the checkout and returns the created borrow.
// A business rejection comes back as an error with HandlerResult.Rejected set.
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

// executeCommand contains the core command processing logic that can be retried.
func (h CommandHandler) executeCommand(
	ctx context.Context,
	command Command,
) (borrow core.Borrow, events core.LoanEvents, rejected bool, err error) {
	key := loanstore.LockKey{CopyID: command.CopyID, ReaderID: command.ReaderID}

	err = h.store.WithinUnitOfWork(ctx, key, func(ctx context.Context, uow loanstore.UnitOfWork) error {
		// Load phase
		availability, err := uow.LoadAvailability(ctx, command.CopyID)
		if err != nil {
			return err
		}

		activity, err := uow.LoadReaderActivity(ctx, command.ReaderID)
		if err != nil {
			return err
		}

		// Business logic phase - delegate to pure core function
		result := Decide(availability, activity, command, h.policy)
		if result.IsRejected() {
			rejected = true
			return result.HasError()
		}

		// Apply phase
		borrow, err = apply(ctx, uow, result.Events)
		if err != nil {
			return err
		}

		events = result.Events

		return nil
	})

	return borrow, events, rejected, err
}

func apply(ctx context.Context, uow loanstore.UnitOfWork, events core.LoanEvents) (core.Borrow, error) {
	var borrow core.Borrow

	for _, event := range events {
		switch e := event.(type) {
		case core.ReservationFulfilled:
			if _, err := uow.DeactivateReserve(ctx, e.ReserveID); err != nil {
				return core.Borrow{}, err
			}

		case core.CopyCheckedOut:
			inserted, err := uow.InsertBorrow(ctx, e.CopyID, e.ReaderID, e.OccurredAt)
			if err != nil {
				return core.Borrow{}, err
			}

			borrow = inserted

		default:
			return core.Borrow{}, shell.ErrUnexpectedEvent
		}
	}

	return borrow, nil
}
