package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/testutil/observability/testdoubles"
)

func Test_RetryWithExponentialBackoff_Success_NoRetries(t *testing.T) {
	// arrange
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		return nil
	}

	// act
	meta, err := RetryWithExponentialBackoff(context.Background(), fn)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, 1, meta.Attempts)
	assert.Equal(t, time.Duration(0), meta.TotalDelay)
	assert.Equal(t, "none", meta.LastErrorType)
	assert.False(t, meta.RetriesExhausted)
}

func Test_RetryWithExponentialBackoff_RetryOnConcurrencyConflict(t *testing.T) {
	// arrange
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		if callCount < 3 {
			return loanstore.Conflict(errors.New("duplicate key value violates unique constraint"))
		}
		return nil
	}

	// act
	meta, err := RetryWithExponentialBackoff(context.Background(), fn, WithBaseDelay(time.Millisecond))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
	assert.Equal(t, 3, meta.Attempts)
	assert.Greater(t, meta.TotalDelay, time.Duration(0))
	assert.Equal(t, "none", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_BusinessRejectionIsNotRetried(t *testing.T) {
	// arrange
	callCount := 0
	rejection := core.Rejection("CheckoutCopy", core.ErrCopyUnavailable)
	fn := func(_ context.Context) error {
		callCount++
		return rejection
	}

	// act
	meta, err := RetryWithExponentialBackoff(context.Background(), fn)

	// assert
	assert.ErrorIs(t, err, core.ErrCopyUnavailable)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, "other", meta.LastErrorType)
	assert.False(t, meta.RetriesExhausted)
}

func Test_RetryWithExponentialBackoff_StoreFailureIsNotRetried(t *testing.T) {
	// arrange
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		return loanstore.Failure(loanstore.ErrQueryingFailed, errors.New("connection reset"))
	}

	// act
	_, err := RetryWithExponentialBackoff(context.Background(), fn)

	// assert
	assert.ErrorIs(t, err, loanstore.ErrStoreFailure)
	assert.Equal(t, 1, callCount)
}

func Test_RetryWithExponentialBackoff_MaxAttemptsExhausted(t *testing.T) {
	// arrange
	metricsCollector := testdoubles.NewMetricsCollectorSpy(true)
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		return loanstore.Conflict(errors.New("serialization failure"))
	}

	// act
	meta, err := RetryWithExponentialBackoff(context.Background(), fn,
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond),
		WithJitterFactor(0),
		WithMetrics(metricsCollector, "ReserveCopy"),
	)

	// assert
	assert.ErrorIs(t, err, loanstore.ErrConcurrencyConflict)
	assert.Equal(t, 3, callCount)
	assert.Equal(t, 3, meta.Attempts)
	assert.True(t, meta.RetriesExhausted)
	assert.Equal(t, "concurrency_conflict", meta.LastErrorType)
	assert.Equal(t, 3*time.Millisecond, meta.TotalDelay)

	assert.Equal(t, 2, metricsCollector.HasCounterRecordForMetric(CommandHandlerRetriesMetric).
		WithLabel(LogAttrCommandType, "ReserveCopy").
		WithErrorType("concurrency_conflict").
		Count())
	assert.Equal(t, 2, metricsCollector.HasDurationRecordForMetric(CommandHandlerRetryDelayMetric).Count())
	assert.True(t, metricsCollector.HasCounterRecordForMetric(CommandHandlerMaxRetriesReachedMetric).
		WithLabel("final_error_type", "concurrency_conflict").
		Assert())
}

func Test_RetryWithExponentialBackoff_ContextCanceledDuringBackoff(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		cancel()
		return loanstore.Conflict(errors.New("conflict"))
	}

	// act
	meta, err := RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(time.Second))

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, "context_canceled", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_InvalidOptions(t *testing.T) {
	ctx := context.Background()
	fn := func(_ context.Context) error { return nil }

	testCases := []struct {
		name        string
		option      RetryOption
		expectedErr error
	}{
		{name: "zero max attempts", option: WithMaxAttempts(0), expectedErr: ErrInvalidMaxAttempts},
		{name: "negative base delay", option: WithBaseDelay(-1 * time.Second), expectedErr: ErrNegativeBaseDelay},
		{name: "jitter above one", option: WithJitterFactor(1.5), expectedErr: ErrInvalidJitterFactor},
		{name: "nil metrics collector", option: WithMetrics(nil, "CheckoutCopy"), expectedErr: ErrNilMetricsCollector},
		{
			name:        "empty command type",
			option:      WithMetrics(testdoubles.NewMetricsCollectorSpy(false), ""),
			expectedErr: ErrEmptyCommandType,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RetryWithExponentialBackoff(ctx, fn, tc.option)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}
