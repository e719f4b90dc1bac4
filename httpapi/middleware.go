package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/shell"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

const (
	// MetricRequestDuration is the histogram of request durations by method and status code.
	MetricRequestDuration = "httpapi_request_duration_seconds"

	// MetricRequestsInFlight is the gauge of requests currently being served.
	MetricRequestsInFlight = "httpapi_requests_in_flight"

	headerRequestID = "X-Request-ID"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDFrom returns the request id set by RequestLogging.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Chain applies the middlewares so that the first one is the outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return h
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rec *statusRecorder) WriteHeader(status int) {
	if rec.written {
		return
	}

	rec.status = status
	rec.written = true
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.written {
		rec.WriteHeader(http.StatusOK)
	}

	return rec.ResponseWriter.Write(b)
}

func recorderFor(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}

	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// Recovery turns a panic into a 500 answer and logs the stack.
func Recovery(logger shell.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := recorderFor(w)

			defer func() {
				if p := recover(); p != nil {
					if logger != nil {
						logger.Error("panic recovered",
							"request_id", RequestIDFrom(r.Context()),
							"method", r.Method,
							"path", r.URL.Path,
							shell.LogAttrError, fmt.Sprint(p),
							"stack", string(debug.Stack()),
						)
					}

					if !rec.written {
						writeError(rec, http.StatusInternalServerError, msgInternalServerError)
					}
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// RequestLogging assigns a request id and logs every completed request.
func RequestLogging(logger shell.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(headerRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set(headerRequestID, requestID)
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))
			rec := recorderFor(w)

			next.ServeHTTP(rec, r)

			if logger != nil {
				logger.Info("http request completed",
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					shell.LogAttrStatus, rec.status,
					shell.LogAttrDurationMS, shell.ToMilliseconds(time.Since(start)),
				)
			}
		})
	}
}

// RequestTimeout bounds the request context. Store calls observe the deadline and the handler answers 503.
func RequestTimeout(timeout time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestMetrics records the request duration and the number of requests in flight.
func RequestMetrics(collector shell.MetricsCollector) Middleware {
	var inFlight atomic.Int64

	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			collector.RecordValue(MetricRequestsInFlight, float64(inFlight.Add(1)), nil)

			rec := recorderFor(w)
			defer func() {
				collector.RecordValue(MetricRequestsInFlight, float64(inFlight.Add(-1)), nil)
				collector.RecordDuration(MetricRequestDuration, time.Since(start), map[string]string{
					"method": r.Method,
					"code":   strconv.Itoa(rec.status),
				})
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
