// Package promadapters implements loanstore.MetricsCollector with prometheus/client_golang vectors.
//
// Vectors are created on first use per metric name. The label names of a metric are fixed by its first
// observation, later observations with a different label set are dropped.
package promadapters

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/library-loans/loanstore"
)

// MetricsCollector registers its vectors on a prometheus.Registerer.
type MetricsCollector struct {
	registerer prometheus.Registerer
	namespace  string
	buckets    []float64

	mu         sync.Mutex
	histograms map[string]labelledVec[*prometheus.HistogramVec]
	counters   map[string]labelledVec[*prometheus.CounterVec]
	gauges     map[string]labelledVec[*prometheus.GaugeVec]
}

type labelledVec[V any] struct {
	vec        V
	labelNames []string
}

// Option configures a MetricsCollector.
type Option func(*MetricsCollector)

// WithNamespace prefixes all metric names, e.g. "library" gives "library_loanevents_published_total".
func WithNamespace(namespace string) Option {
	return func(m *MetricsCollector) {
		m.namespace = namespace
	}
}

// WithBuckets sets the histogram buckets in seconds. The default is prometheus.DefBuckets.
func WithBuckets(buckets []float64) Option {
	return func(m *MetricsCollector) {
		m.buckets = buckets
	}
}

// NewMetricsCollector creates a collector. Pass prometheus.DefaultRegisterer to expose on the default handler.
func NewMetricsCollector(registerer prometheus.Registerer, opts ...Option) *MetricsCollector {
	m := &MetricsCollector{
		registerer: registerer,
		buckets:    prometheus.DefBuckets,
		histograms: make(map[string]labelledVec[*prometheus.HistogramVec]),
		counters:   make(map[string]labelledVec[*prometheus.CounterVec]),
		gauges:     make(map[string]labelledVec[*prometheus.GaugeVec]),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// RecordDuration observes the duration in seconds.
func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	vec, ok := m.histogram(metric, labels)
	if !ok {
		return
	}

	vec.With(labels).Observe(duration.Seconds())
}

// IncrementCounter adds 1 to the counter.
func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	vec, ok := m.counter(metric, labels)
	if !ok {
		return
	}

	vec.With(labels).Inc()
}

// RecordValue sets the gauge.
func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	vec, ok := m.gauge(metric, labels)
	if !ok {
		return
	}

	vec.With(labels).Set(value)
}

// RecordDurationContext ignores ctx, Prometheus has no trace correlation here.
func (m *MetricsCollector) RecordDurationContext(_ context.Context, metric string, duration time.Duration, labels map[string]string) {
	m.RecordDuration(metric, duration, labels)
}

// IncrementCounterContext ignores ctx.
func (m *MetricsCollector) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	m.IncrementCounter(metric, labels)
}

// RecordValueContext ignores ctx.
func (m *MetricsCollector) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	m.RecordValue(metric, value, labels)
}

func (m *MetricsCollector) histogram(name string, labels map[string]string) (*prometheus.HistogramVec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	labelNames := sortedKeys(labels)

	if existing, found := m.histograms[name]; found {
		return existing.vec, slices.Equal(existing.labelNames, labelNames)
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      helpFor(name),
		Buckets:   m.buckets,
	}, labelNames)

	vec, ok := register(m.registerer, vec)
	if !ok {
		return nil, false
	}

	m.histograms[name] = labelledVec[*prometheus.HistogramVec]{vec: vec, labelNames: labelNames}

	return vec, true
}

func (m *MetricsCollector) counter(name string, labels map[string]string) (*prometheus.CounterVec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	labelNames := sortedKeys(labels)

	if existing, found := m.counters[name]; found {
		return existing.vec, slices.Equal(existing.labelNames, labelNames)
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      helpFor(name),
	}, labelNames)

	vec, ok := register(m.registerer, vec)
	if !ok {
		return nil, false
	}

	m.counters[name] = labelledVec[*prometheus.CounterVec]{vec: vec, labelNames: labelNames}

	return vec, true
}

func (m *MetricsCollector) gauge(name string, labels map[string]string) (*prometheus.GaugeVec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	labelNames := sortedKeys(labels)

	if existing, found := m.gauges[name]; found {
		return existing.vec, slices.Equal(existing.labelNames, labelNames)
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      helpFor(name),
	}, labelNames)

	vec, ok := register(m.registerer, vec)
	if !ok {
		return nil, false
	}

	m.gauges[name] = labelledVec[*prometheus.GaugeVec]{vec: vec, labelNames: labelNames}

	return vec, true
}

// register reuses a vector another collector already registered under the same descriptor.
func register[V prometheus.Collector](registerer prometheus.Registerer, vec V) (V, bool) {
	err := registerer.Register(vec)
	if err == nil {
		return vec, true
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		if existing, ok := alreadyRegistered.ExistingCollector.(V); ok {
			return existing, true
		}
	}

	var zero V

	return zero, false
}

func sortedKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

func helpFor(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

var _ loanstore.ContextualMetricsCollector = (*MetricsCollector)(nil)
