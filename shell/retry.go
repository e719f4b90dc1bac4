package shell

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-loans/loanstore"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3

	errorTypeNone     = "none"
	errorTypeConflict = "concurrency_conflict"
	errorTypeCanceled = "context_canceled"
	errorTypeTimeout  = "context_deadline_exceeded"
	errorTypeOther    = "other"
)

var (
	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyCommandType is returned when an empty command type is provided to WithMetrics.
	ErrEmptyCommandType = errors.New("command type must not be empty")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// RetryMetrics describes how a retried call went. It feeds the command handler's HandlerResult.
type RetryMetrics struct {
	Attempts         int
	TotalDelay       time.Duration
	LastErrorType    string
	RetriesExhausted bool
}

type retryConfig struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	metricsCollector MetricsCollector
	commandType      string
}

// backoff returns the pause before the given attempt: baseDelay doubled per earlier retry, plus up to jitterFactor of it.
func (c *retryConfig) backoff(attempt int) time.Duration {
	delay := c.baseDelay << (attempt - 1)
	jitter := time.Duration(rand.Float64() * float64(delay) * c.jitterFactor) //nolint:gosec // jitter needs no crypto

	return delay + jitter
}

// RetryWithExponentialBackoff runs fn and repeats it while it fails with a concurrency conflict.
// A conflict means a parallel unit of work changed the same copy first, e.g. a unique index on
// active borrows fired. The next attempt re-reads the copy and decides again.
//
// Default pauses between attempts: 10 ms, 20 ms, 40 ms, 80 ms, 160 ms, each with up to 30% jitter.
//
// Business rejections and store failures are returned after the first attempt.
func RetryWithExponentialBackoff(
	ctx context.Context,
	fn RetryableFunc,
	options ...RetryOption,
) (RetryMetrics, error) {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return RetryMetrics{LastErrorType: getErrorType(err)}, err
		}
	}

	var (
		metrics RetryMetrics
		err     error
	)

	for attempt := range config.maxAttempts {
		if attempt > 0 {
			pause := config.backoff(attempt)
			config.recordRetry(ctx, attempt, err, pause)

			if waitErr := sleepContext(ctx, pause); waitErr != nil {
				metrics.LastErrorType = getErrorType(waitErr)
				return metrics, waitErr
			}

			metrics.TotalDelay += pause
		}

		metrics.Attempts++
		err = fn(ctx)
		metrics.LastErrorType = getErrorType(err)

		if !errors.Is(err, loanstore.ErrConcurrencyConflict) {
			return metrics, err
		}
	}

	metrics.RetriesExhausted = true
	config.recordExhausted(ctx, err)

	return metrics, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recordRetry counts the upcoming attempt and its pause, labelled with the error that caused it.
func (c *retryConfig) recordRetry(ctx context.Context, attempt int, cause error, pause time.Duration) {
	if c.metricsCollector == nil {
		return
	}

	c.count(ctx, CommandHandlerRetriesMetric, BuildRetryLabels(c.commandType, attempt, getErrorType(cause)))

	delayLabels := map[string]string{
		LogAttrCommandType: c.commandType,
		"attempt_number":   strconv.Itoa(attempt),
	}

	if contextual, ok := c.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, CommandHandlerRetryDelayMetric, pause, delayLabels)
		return
	}

	c.metricsCollector.RecordDuration(CommandHandlerRetryDelayMetric, pause, delayLabels)
}

func (c *retryConfig) recordExhausted(ctx context.Context, cause error) {
	if c.metricsCollector == nil {
		return
	}

	c.count(ctx, CommandHandlerMaxRetriesReachedMetric, map[string]string{
		LogAttrCommandType: c.commandType,
		"final_error_type": getErrorType(cause),
	})
}

func (c *retryConfig) count(ctx context.Context, metric string, labels map[string]string) {
	if contextual, ok := c.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	c.metricsCollector.IncrementCounter(metric, labels)
}

// getErrorType is the error_type label of err.
func getErrorType(err error) string {
	switch {
	case err == nil:
		return errorTypeNone
	case errors.Is(err, loanstore.ErrConcurrencyConflict):
		return errorTypeConflict
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeTimeout
	default:
		return errorTypeOther
	}
}

// RetryOption configures retry behavior using the functional options pattern.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the maximum number of attempts, including the first one.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the pause before the first retry. Each further retry doubles it.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter factor, a share of the calculated backoff delay between 0.0 and 1.0.
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithMetrics counts retries, their pauses and exhaustion per command type.
func WithMetrics(collector MetricsCollector, commandType string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if commandType == "" {
			return ErrEmptyCommandType
		}

		config.metricsCollector = collector
		config.commandType = commandType

		return nil
	}
}
