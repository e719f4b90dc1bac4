package oteladapters_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/library-loans/loanstore/oteladapters"
)

func newMeter() (metric.Meter, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return provider.Meter("test"), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics), "failed to collect metrics")

	return resourceMetrics
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// arrange
	meter, reader := newMeter()
	collector := oteladapters.NewMetricsCollector(meter)
	labels := map[string]string{"command_type": "CheckoutCopy", "status": "success"}

	// act
	collector.RecordDuration("commandhandler_handle_duration_seconds", 150*time.Millisecond, labels)

	// assert
	histogram := findHistogramMetric(t, collect(t, reader), "commandhandler_handle_duration_seconds")
	require.Len(t, histogram.DataPoints, 1)

	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), dataPoint.Count)
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001, "durations are recorded in seconds")

	expectedAttrs := attribute.NewSet(
		attribute.String("command_type", "CheckoutCopy"),
		attribute.String("status", "success"),
	)
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs))
}

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	// arrange
	meter, reader := newMeter()
	collector := oteladapters.NewMetricsCollector(meter)
	labels := map[string]string{"event_type": "CopyReturned", "status": "success"}

	// act
	collector.IncrementCounter("loanevents_published_total", labels)
	collector.IncrementCounterContext(context.Background(), "loanevents_published_total", labels)
	collector.IncrementCounter("loanevents_published_total", labels)

	// assert
	counter := findCounterMetric(t, collect(t, reader), "loanevents_published_total")
	require.Len(t, counter.DataPoints, 1)
	assert.Equal(t, int64(3), counter.DataPoints[0].Value)
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	// arrange
	meter, reader := newMeter()
	collector := oteladapters.NewMetricsCollector(meter)

	// act
	collector.RecordValue("httpapi_requests_in_flight", 2, nil)
	collector.RecordValueContext(context.Background(), "httpapi_requests_in_flight", 5, nil)

	// assert
	gauge := findGaugeMetric(t, collect(t, reader), "httpapi_requests_in_flight")
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 5.0, gauge.DataPoints[0].Value, 0.0001, "a gauge keeps the last value")
}

func Test_MetricsCollector_ConcurrentUse(t *testing.T) {
	// arrange
	meter, reader := newMeter()
	collector := oteladapters.NewMetricsCollector(meter)

	var wg sync.WaitGroup

	// act
	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			collector.IncrementCounter("commandhandler_handle_calls_total", map[string]string{"status": "success"})
			collector.RecordDuration("commandhandler_handle_duration_seconds", time.Millisecond, nil)
		}()
	}

	wg.Wait()

	// assert
	counter := findCounterMetric(t, collect(t, reader), "commandhandler_handle_calls_total")
	assert.Equal(t, int64(20), counter.DataPoints[0].Value)
}

func Test_MetricsCollector_InstrumentCreationFails(t *testing.T) {
	// arrange
	meter, _ := newMeter()
	collector := oteladapters.NewMetricsCollector(&failingMeter{Meter: meter})
	ctx := context.Background()

	// act + assert
	assert.NotPanics(t, func() {
		collector.RecordDuration("any_duration", time.Millisecond, nil)
		collector.RecordDurationContext(ctx, "any_duration", time.Millisecond, nil)
		collector.IncrementCounter("any_counter", nil)
		collector.IncrementCounterContext(ctx, "any_counter", nil)
		collector.RecordValue("any_gauge", 1, nil)
		collector.RecordValueContext(ctx, "any_gauge", 1, nil)
	})
}

// failingMeter refuses to create any instrument.
type failingMeter struct {
	metric.Meter
}

func (m *failingMeter) Float64Histogram(string, ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return nil, errors.New("histogram creation failed")
}

func (m *failingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("counter creation failed")
}

func (m *failingMeter) Float64Gauge(string, ...metric.Float64GaugeOption) (metric.Float64Gauge, error) {
	return nil, errors.New("gauge creation failed")
}

func findHistogramMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Histogram[float64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok && m.Name == name {
				return h
			}
		}
	}

	t.Fatalf("histogram metric %s not found", name)

	return metricdata.Histogram[float64]{}
}

func findCounterMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Sum[int64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if c, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == name {
				return c
			}
		}
	}

	t.Fatalf("counter metric %s not found", name)

	return metricdata.Sum[int64]{}
}

func findGaugeMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Gauge[float64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if g, ok := m.Data.(metricdata.Gauge[float64]); ok && m.Name == name {
				return g
			}
		}
	}

	t.Fatalf("gauge metric %s not found", name)

	return metricdata.Gauge[float64]{}
}
