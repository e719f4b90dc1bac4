package shell

import (
	"time"

	"github.com/AntonStoeckl/library-loans/core"
)

// HandlerResult represents the outcome of a command handler execution.
// It captures both business outcomes (record, events, rejection) and execution metadata (retry information)
// without coupling the handler to specific observability implementations.
type HandlerResult[R any] struct {
	// Record is what the command created or changed. It is the zero value unless the command succeeded.
	Record R

	// Events are the committed loan events in the order they were applied.
	Events core.LoanEvents

	// Rejected indicates that a business rule refused the command. The returned error names the rule.
	// This is a first-class business outcome, not a failure.
	Rejected bool

	// RetryAttempts is the total number of attempts made (1 for no retries, 2+ for retries).
	RetryAttempts int

	// TotalRetryDelay is the cumulative time spent in retry backoff delays.
	TotalRetryDelay time.Duration

	// LastErrorType describes the type of the final error encountered during retries.
	// Values: "none" (success), "concurrency_conflict", "context_canceled", "context_deadline_exceeded", "other"
	LastErrorType string

	// RetriesExhausted indicates whether max retry attempts were reached with a retryable error.
	RetriesExhausted bool
}

// NewSuccessResult creates a HandlerResult for a command that changed state.
func NewSuccessResult[R any](record R, events core.LoanEvents, retryMetrics RetryMetrics) HandlerResult[R] {
	result := resultFrom[R](retryMetrics)
	result.Record = record
	result.Events = events

	return result
}

// NewRejectedResult creates a HandlerResult for a command refused by a business rule.
func NewRejectedResult[R any](retryMetrics RetryMetrics) HandlerResult[R] {
	result := resultFrom[R](retryMetrics)
	result.Rejected = true

	return result
}

// NewErrorResult creates a HandlerResult for failed operations.
// This is used when the handler returns an error but still wants to report retry metadata.
func NewErrorResult[R any](retryMetrics RetryMetrics) HandlerResult[R] {
	return resultFrom[R](retryMetrics)
}

func resultFrom[R any](retryMetrics RetryMetrics) HandlerResult[R] {
	return HandlerResult[R]{
		RetryAttempts:    retryMetrics.Attempts,
		TotalRetryDelay:  retryMetrics.TotalDelay,
		LastErrorType:    retryMetrics.LastErrorType,
		RetriesExhausted: retryMetrics.RetriesExhausted,
	}
}
