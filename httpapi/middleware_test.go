package httpapi_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/features/query/copyavailability"
	"github.com/AntonStoeckl/library-loans/httpapi"
	"github.com/AntonStoeckl/library-loans/testutil/observability/testdoubles"
)

type blockingService struct {
	httpapi.LoanService
}

func (blockingService) Availability(ctx context.Context, _ core.CopyID) (copyavailability.CopyAvailability, error) {
	<-ctx.Done()
	return copyavailability.CopyAvailability{}, ctx.Err()
}

type panickingService struct {
	httpapi.LoanService
}

func (panickingService) Availability(context.Context, core.CopyID) (copyavailability.CopyAvailability, error) {
	panic("boom")
}

func availabilityRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/copies/"+uuid.NewString()+"/availability", nil)
}

func Test_RequestTimeout_AnswersServiceUnavailable(t *testing.T) {
	// arrange
	server := httpapi.Chain(
		httpapi.NewHandler(blockingService{}).Router(),
		httpapi.RequestTimeout(20*time.Millisecond),
	)
	rec := httptest.NewRecorder()

	// act
	server.ServeHTTP(rec, availabilityRequest())

	// assert
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"message": "The request timed out.", "status": 503}`, rec.Body.String())
}

func Test_Recovery_TurnsPanicIntoInternalError(t *testing.T) {
	// arrange
	logSpy := testdoubles.NewLogHandlerSpy(false)
	server := httpapi.Chain(
		httpapi.NewHandler(panickingService{}).Router(),
		httpapi.Recovery(slog.New(logSpy)),
	)
	rec := httptest.NewRecorder()

	// act
	require.NotPanics(t, func() { server.ServeHTTP(rec, availabilityRequest()) })

	// assert
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelError, "panic recovered"))
}

func Test_RequestLogging_SetsRequestIDAndLogs(t *testing.T) {
	// arrange
	logSpy := testdoubles.NewLogHandlerSpy(false)
	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = httpapi.RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	server := httpapi.Chain(inner, httpapi.RequestLogging(slog.New(logSpy)))

	// act
	fresh := httptest.NewRecorder()
	server.ServeHTTP(fresh, httptest.NewRequest(http.MethodGet, "/health", nil))

	given := httptest.NewRequest(http.MethodGet, "/health", nil)
	given.Header.Set("X-Request-ID", "req-1")
	propagated := httptest.NewRecorder()
	server.ServeHTTP(propagated, given)

	// assert
	assert.NotEmpty(t, fresh.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-1", propagated.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-1", seenID)
	assert.True(t, logSpy.HasLogWithDurationMS(slog.LevelInfo, "http request completed"))
}

func Test_RequestMetrics_RecordsDurationAndInFlight(t *testing.T) {
	// arrange
	metricsSpy := testdoubles.NewMetricsCollectorSpy(true)
	server := httpapi.Chain(
		httpapi.NewHandler(panickingService{}).Router(),
		httpapi.RequestMetrics(metricsSpy),
		httpapi.Recovery(nil),
	)

	// act
	server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	server.ServeHTTP(httptest.NewRecorder(), availabilityRequest())

	// assert
	assert.True(t, metricsSpy.HasDurationRecordForMetric(httpapi.MetricRequestDuration).
		WithLabel("method", http.MethodGet).WithLabel("code", "200").Assert())
	assert.True(t, metricsSpy.HasDurationRecordForMetric(httpapi.MetricRequestDuration).
		WithLabel("code", "500").Assert())
	assert.Equal(t, 4, metricsSpy.HasValueRecordForMetric(httpapi.MetricRequestsInFlight).Count())

	values := metricsSpy.ValueRecords()
	assert.InDelta(t, 0, values[len(values)-1].Value, 0)
}

func Test_Chain_FirstMiddlewareIsOutermost(t *testing.T) {
	var order []string
	mark := func(name string) httpapi.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	server := httpapi.Chain(http.NotFoundHandler(), mark("outer"), mark("inner"))
	server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", strings.NewReader("")))

	assert.Equal(t, []string{"outer", "inner"}, order)
}
