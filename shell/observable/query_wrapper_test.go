package observable_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/shell"
	"github.com/AntonStoeckl/library-loans/shell/observable"
	. "github.com/AntonStoeckl/library-loans/testutil/observability/testdoubles" //nolint:revive
)

func Test_QueryWrapper_Handle_Success(t *testing.T) {
	// arrange
	handler := &mockQueryHandler{result: mockResult{Count: 3}}
	metricsCollector := NewMetricsCollectorSpy(true)
	tracingCollector := NewTracingCollectorSpy(true)
	contextualLogger := NewContextualLoggerSpy(true)

	wrapper, err := observable.NewQueryWrapper[mockQuery, mockResult](
		handler,
		observable.WithQueryMetrics[mockQuery, mockResult](metricsCollector),
		observable.WithQueryTracing[mockQuery, mockResult](tracingCollector),
		observable.WithQueryContextualLogging[mockQuery, mockResult](contextualLogger),
	)
	require.NoError(t, err)

	// act
	result, err := wrapper.Handle(context.Background(), mockQuery{})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.True(t, metricsCollector.HasDurationRecordForMetric(shell.QueryHandlerDurationMetric).
		WithLabel(shell.LogAttrQueryType, "TestQuery").
		WithStatus(shell.StatusSuccess).
		Assert())
	assert.True(t, metricsCollector.HasCounterRecordForMetric(shell.QueryHandlerCallsMetric).Assert())
	assert.True(t, tracingCollector.HasSpanRecordForName(shell.SpanNameQueryHandle).WithStatus(shell.StatusSuccess).Assert())
	assert.True(t, contextualLogger.HasLog("info", shell.LogMsgQueryStarted))
	assert.True(t, contextualLogger.HasLog("info", shell.LogMsgQueryCompleted))
}

func Test_QueryWrapper_Handle_Errors(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus string
	}{
		{name: "failure", err: errors.New("database down"), expectedStatus: shell.StatusError},
		{name: "canceled", err: context.Canceled, expectedStatus: shell.StatusCanceled},
		{name: "timeout", err: context.DeadlineExceeded, expectedStatus: shell.StatusTimeout},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			handler := &mockQueryHandler{err: tc.err}
			metricsCollector := NewMetricsCollectorSpy(true)
			tracingCollector := NewTracingCollectorSpy(true)
			contextualLogger := NewContextualLoggerSpy(true)

			wrapper, err := observable.NewQueryWrapper[mockQuery, mockResult](
				handler,
				observable.WithQueryMetrics[mockQuery, mockResult](metricsCollector),
				observable.WithQueryTracing[mockQuery, mockResult](tracingCollector),
				observable.WithQueryContextualLogging[mockQuery, mockResult](contextualLogger),
			)
			require.NoError(t, err)

			// act
			_, err = wrapper.Handle(context.Background(), mockQuery{})

			// assert
			assert.ErrorIs(t, err, tc.err)
			assert.True(t, metricsCollector.HasCounterRecordForMetric(shell.QueryHandlerCallsMetric).
				WithStatus(tc.expectedStatus).
				Assert())
			assert.True(t, tracingCollector.HasSpanRecordForName(shell.SpanNameQueryHandle).
				WithStatus(tc.expectedStatus).
				WithEndAttribute(shell.LogAttrError, tc.err.Error()).
				Assert())
			assert.True(t, contextualLogger.HasLog("error", shell.LogMsgQueryFailed))
		})
	}
}

type mockQuery struct{}

func (q mockQuery) QueryType() string { return "TestQuery" }

type mockResult struct {
	Count int
}

type mockQueryHandler struct {
	result mockResult
	err    error
}

func (h *mockQueryHandler) Handle(_ context.Context, _ mockQuery) (mockResult, error) {
	return h.result, h.err
}
