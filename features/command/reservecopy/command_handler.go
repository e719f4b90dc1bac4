package reservecopy

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

// CommandHandler creates the reservation inside one unit of work and retries concurrency conflicts.
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

// Handle executes the reservation and returns the created reserve.
func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult[core.Reserve], error) {
	ctx = loanstore.WithStrongConsistency(ctx)

	var (
		reserve  core.Reserve
		events   core.LoanEvents
		rejected bool
	)

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		reserve, events, rejected, execErr = h.executeCommand(retryCtx, command)

		return execErr
	}, h.retryOptions...)

	switch {
	case rejected:
		return shell.NewRejectedResult[core.Reserve](retryMetrics), err
	case err != nil:
		return shell.NewErrorResult[core.Reserve](retryMetrics), err
	default:
		return shell.NewSuccessResult(reserve, events, retryMetrics), nil
	}
}

func (h CommandHandler) executeCommand(
	ctx context.Context,
	command Command,
) (reserve core.Reserve, events core.LoanEvents, rejected bool, err error) {
	key := loanstore.LockKey{CopyID: command.CopyID, ReaderID: command.ReaderID}

	err = h.store.WithinUnitOfWork(ctx, key, func(ctx context.Context, uow loanstore.UnitOfWork) error {
		availability, err := uow.LoadAvailability(ctx, command.CopyID)
		if err != nil {
			return err
		}

		activity, err := uow.LoadReaderActivity(ctx, command.ReaderID)
		if err != nil {
			return err
		}

		result := Decide(availability, activity, command, h.policy)
		if result.IsRejected() {
			rejected = true
			return result.HasError()
		}

		for _, event := range result.Events {
			reserved, ok := event.(core.CopyReserved)
			if !ok {
				return shell.ErrUnexpectedEvent
			}

			reserve, err = uow.InsertReserve(ctx, reserved.CopyID, reserved.ReaderID, reserved.OccurredAt)
			if err != nil {
				return err
			}
		}

		events = result.Events

		return nil
	})

	return reserve, events, rejected, err
}
