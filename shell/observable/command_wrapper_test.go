package observable_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/shell"
	"github.com/AntonStoeckl/library-loans/shell/observable"
	. "github.com/AntonStoeckl/library-loans/testutil/observability/testdoubles" //nolint:revive
)

func Test_CommandWrapper_Handle_Success(t *testing.T) {
	// arrange
	expectedResult := shell.HandlerResult[string]{Record: "borrow", RetryAttempts: 1, LastErrorType: "none"}
	handler := newMockHandler(expectedResult, nil)
	metricsCollector := NewMetricsCollectorSpy(true)
	tracingCollector := NewTracingCollectorSpy(true)
	contextualLogger := NewContextualLoggerSpy(true)

	wrapper, err := observable.NewCommandWrapper[mockCommand, string](
		handler,
		observable.WithCommandMetrics[mockCommand, string](metricsCollector),
		observable.WithCommandTracing[mockCommand, string](tracingCollector),
		observable.WithCommandContextualLogging[mockCommand, string](contextualLogger),
	)
	require.NoError(t, err)

	// act
	result, err := wrapper.Handle(context.Background(), mockCommand{})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, expectedResult, result)
	assert.Len(t, handler.calls, 1)

	assert.True(t, metricsCollector.HasCounterRecordForMetric(shell.CommandHandlerCallsMetric).
		WithLabel(shell.LogAttrCommandType, "TestCommand").
		WithStatus(shell.StatusSuccess).
		Assert(), "should count the call")
	assert.True(t, metricsCollector.HasDurationRecordForMetric(shell.CommandHandlerDurationMetric).
		WithStatus(shell.StatusSuccess).
		Assert(), "should record the duration")
	assert.False(t, metricsCollector.HasCounterRecordForMetric(shell.CommandHandlerRetriesMetric).Assert())

	assert.True(t, tracingCollector.HasSpanRecordForName(shell.SpanNameCommandHandle).
		WithStartAttribute(shell.LogAttrCommandType, "TestCommand").
		WithStatus(shell.StatusSuccess).
		Assert(), "should finish the span")

	assert.True(t, contextualLogger.HasLog("info", shell.LogMsgCommandStarted))
	assert.True(t, contextualLogger.HasLogWithArg("info", shell.LogMsgCommandCompleted, shell.LogAttrBusinessOutcome, shell.StatusSuccess))
}

func Test_CommandWrapper_Handle_BusinessRejection(t *testing.T) {
	// arrange
	rejection := core.Rejection("TestCommand", core.ErrOverBorrowLimit)
	handler := newMockHandler(shell.HandlerResult[string]{Rejected: true, RetryAttempts: 1}, rejection)
	metricsCollector := NewMetricsCollectorSpy(true)
	tracingCollector := NewTracingCollectorSpy(true)
	contextualLogger := NewContextualLoggerSpy(true)

	wrapper, err := observable.NewCommandWrapper[mockCommand, string](
		handler,
		observable.WithCommandMetrics[mockCommand, string](metricsCollector),
		observable.WithCommandTracing[mockCommand, string](tracingCollector),
		observable.WithCommandContextualLogging[mockCommand, string](contextualLogger),
	)
	require.NoError(t, err)

	// act
	result, err := wrapper.Handle(context.Background(), mockCommand{})

	// assert
	assert.ErrorIs(t, err, core.ErrOverBorrowLimit)
	assert.True(t, result.Rejected)

	assert.True(t, metricsCollector.HasCounterRecordForMetric(shell.CommandHandlerBusinessRejectionsMetric).
		WithStatus(shell.StatusRejected).
		Assert(), "should count the rejection")
	assert.True(t, metricsCollector.HasCounterRecordForMetric(shell.CommandHandlerCallsMetric).
		WithStatus(shell.StatusRejected).
		Assert())
	assert.True(t, tracingCollector.HasSpanRecordForName(shell.SpanNameCommandHandle).
		WithStatus(shell.StatusRejected).
		Assert())

	assert.True(t, contextualLogger.HasLog("info", shell.LogMsgCommandRejected), "a rejection is no failure")
	assert.Empty(t, contextualLogger.Records("error"))
}

func Test_CommandWrapper_Handle_Errors_RecordCorrectStatus(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus string
		expectedMetric string
	}{
		{
			name:           "store failure",
			err:            loanstore.Failure(loanstore.ErrQueryingFailed, errors.New("connection refused")),
			expectedStatus: shell.StatusError,
		},
		{
			name:           "canceled",
			err:            context.Canceled,
			expectedStatus: shell.StatusCanceled,
			expectedMetric: shell.CommandHandlerCanceledMetric,
		},
		{
			name:           "timeout",
			err:            context.DeadlineExceeded,
			expectedStatus: shell.StatusTimeout,
			expectedMetric: shell.CommandHandlerTimeoutMetric,
		},
		{
			name:           "conflict",
			err:            loanstore.Conflict(errors.New("unique violation")),
			expectedStatus: shell.StatusConcurrencyConflict,
			expectedMetric: shell.CommandHandlerConcurrencyConflictMetric,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			handler := newMockHandler(shell.HandlerResult[string]{RetryAttempts: 1}, tc.err)
			metricsCollector := NewMetricsCollectorSpy(true)
			contextualLogger := NewContextualLoggerSpy(true)

			wrapper, err := observable.NewCommandWrapper[mockCommand, string](
				handler,
				observable.WithCommandMetrics[mockCommand, string](metricsCollector),
				observable.WithCommandContextualLogging[mockCommand, string](contextualLogger),
			)
			require.NoError(t, err)

			// act
			_, err = wrapper.Handle(context.Background(), mockCommand{})

			// assert
			assert.ErrorIs(t, err, tc.err)
			assert.True(t, metricsCollector.HasDurationRecordForMetric(shell.CommandHandlerDurationMetric).
				WithStatus(tc.expectedStatus).
				Assert())

			if tc.expectedMetric != "" {
				assert.True(t, metricsCollector.HasCounterRecordForMetric(tc.expectedMetric).
					WithStatus(tc.expectedStatus).
					Assert())
			}

			assert.True(t, contextualLogger.HasLog("error", shell.LogMsgCommandFailed))
		})
	}
}

func Test_CommandWrapper_Handle_WithRetries_RecordsMetrics(t *testing.T) {
	// arrange
	resultWithRetries := shell.HandlerResult[string]{
		RetryAttempts:    4,
		TotalRetryDelay:  35 * time.Millisecond,
		LastErrorType:    "concurrency_conflict",
		RetriesExhausted: true,
	}
	handler := newMockHandler(resultWithRetries, loanstore.Conflict(errors.New("unique violation")))
	metricsCollector := NewMetricsCollectorSpy(true)

	wrapper, err := observable.NewCommandWrapper[mockCommand, string](
		handler,
		observable.WithCommandMetrics[mockCommand, string](metricsCollector),
	)
	require.NoError(t, err)

	// act
	_, _ = wrapper.Handle(context.Background(), mockCommand{})

	// assert
	assert.True(t, metricsCollector.HasCounterRecordForMetric(shell.CommandHandlerRetriesMetric).
		WithLabel("attempt_number", "3").
		WithErrorType("concurrency_conflict").
		Assert())
	assert.True(t, metricsCollector.HasDurationRecordForMetric(shell.CommandHandlerRetryDelayMetric).Assert())
	assert.True(t, metricsCollector.HasCounterRecordForMetric(shell.CommandHandlerMaxRetriesReachedMetric).Assert())
}

func Test_CommandWrapper_Handle_WithBasicLogger(t *testing.T) {
	// arrange
	logHandler := NewLogHandlerSpy(false)
	handler := newMockHandler(shell.HandlerResult[string]{RetryAttempts: 1}, nil)

	wrapper, err := observable.NewCommandWrapper[mockCommand, string](
		handler,
		observable.WithCommandLogging[mockCommand, string](slog.New(logHandler)),
	)
	require.NoError(t, err)

	// act
	_, err = wrapper.Handle(context.Background(), mockCommand{})

	// assert
	assert.NoError(t, err)
	assert.True(t, logHandler.HasLogWithDurationMS(slog.LevelInfo, shell.LogMsgCommandCompleted))
}

func Test_CommandWrapper_Handle_WithoutObservability(t *testing.T) {
	// arrange
	handler := newMockHandler(shell.HandlerResult[string]{Record: "reserve"}, nil)

	wrapper, err := observable.NewCommandWrapper[mockCommand, string](handler)
	require.NoError(t, err)

	// act
	result, err := wrapper.Handle(context.Background(), mockCommand{})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "reserve", result.Record)
}

type mockCommand struct{}

func (c mockCommand) CommandType() string {
	return "TestCommand"
}

// mockCoreHandler implements shell.CoreCommandHandler for testing.
type mockCoreHandler struct {
	result shell.HandlerResult[string]
	err    error
	calls  []mockCommand
}

func (h *mockCoreHandler) Handle(_ context.Context, command mockCommand) (shell.HandlerResult[string], error) {
	h.calls = append(h.calls, command)
	return h.result, h.err
}

func newMockHandler(result shell.HandlerResult[string], err error) *mockCoreHandler {
	return &mockCoreHandler{result: result, err: err}
}
