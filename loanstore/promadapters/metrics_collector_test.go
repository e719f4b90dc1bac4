package promadapters_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/loanstore/promadapters"
)

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)
	labels := map[string]string{"command_type": "CheckoutCopy", "status": "rejected"}

	// act
	collector.IncrementCounter("commandhandler_business_rejections_total", labels)
	collector.IncrementCounter("commandhandler_business_rejections_total", labels)

	// assert
	expected := `
# HELP commandhandler_business_rejections_total commandhandler business rejections total
# TYPE commandhandler_business_rejections_total counter
commandhandler_business_rejections_total{command_type="CheckoutCopy",status="rejected"} 2
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"commandhandler_business_rejections_total"))
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry, promadapters.WithBuckets([]float64{0.1, 1}))

	// act
	collector.RecordDuration("loanstore_unit_of_work_duration_seconds", 50*time.Millisecond, map[string]string{"status": "success"})
	collector.RecordDuration("loanstore_unit_of_work_duration_seconds", 500*time.Millisecond, map[string]string{"status": "success"})

	// assert
	count, err := testutil.GatherAndCount(registry, "loanstore_unit_of_work_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one series per label set")

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)

	histogram := families[0].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), histogram.GetSampleCount())
	assert.InDelta(t, 0.55, histogram.GetSampleSum(), 0.0001)
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry, promadapters.WithNamespace("library"))

	// act
	collector.RecordValue("httpapi_requests_in_flight", 3, nil)
	collector.RecordValue("httpapi_requests_in_flight", 1, nil)

	// assert
	expected := `
# HELP library_httpapi_requests_in_flight httpapi requests in flight
# TYPE library_httpapi_requests_in_flight gauge
library_httpapi_requests_in_flight 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected)))
}

func Test_MetricsCollector_DropsMismatchingLabelSet(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)
	collector.IncrementCounter("loanevents_published_total", map[string]string{"event_type": "CopyReserved", "status": "success"})

	// act
	assert.NotPanics(t, func() {
		collector.IncrementCounter("loanevents_published_total", map[string]string{"status": "success"})
	})

	// assert
	count, err := testutil.GatherAndCount(registry, "loanevents_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_MetricsCollector_SharesVectorsAcrossCollectors(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	first := promadapters.NewMetricsCollector(registry)
	second := promadapters.NewMetricsCollector(registry)
	labels := map[string]string{"status": "error"}

	// act
	first.IncrementCounter("loanstore_database_errors_total", labels)
	second.IncrementCounter("loanstore_database_errors_total", labels)

	// assert
	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.InDelta(t, 2.0, families[0].GetMetric()[0].GetCounter().GetValue(), 0.0001)
}

func Test_MetricsCollector_ConcurrentUse(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	var wg sync.WaitGroup

	// act
	for range 25 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			collector.IncrementCounter("commandhandler_handle_calls_total", map[string]string{"status": "success"})
		}()
	}

	wg.Wait()

	// assert
	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.InDelta(t, 25.0, families[0].GetMetric()[0].GetCounter().GetValue(), 0.0001)
}
