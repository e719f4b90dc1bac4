package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/AntonStoeckl/library-loans/loanstore/oteladapters"
	"github.com/AntonStoeckl/library-loans/loanstore/promadapters"
	"github.com/AntonStoeckl/library-loans/shell"
	"github.com/AntonStoeckl/library-loans/shell/config"
)

type observability struct {
	metrics          shell.MetricsCollector
	tracing          shell.TracingCollector
	contextualLogger shell.ContextualLogger
	metricsHandler   http.Handler
	shutdownFuncs    []func(context.Context) error
}

func newObservability(cfg config.ServiceConfig, logger *slog.Logger) (*observability, error) {
	obs := &observability{contextualLogger: logger}

	switch cfg.Metrics {
	case config.MetricsPrometheus:
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		obs.metrics = promadapters.NewMetricsCollector(registry)
		obs.metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})

	case config.MetricsOTEL:
		ctx := context.Background()

		res, err := resource.New(ctx,
			resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
		)
		if err != nil {
			return nil, err
		}

		traceExporter, err := otlptracegrpc.New(ctx, traceExporterOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}

		metricExporter, err := otlpmetricgrpc.New(ctx, metricExporterOptions(cfg)...)
		if err != nil {
			_ = traceExporter.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}

		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		meterProvider := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
				sdkmetric.WithInterval(otlpExportInterval))),
			sdkmetric.WithResource(res),
		)

		otel.SetMeterProvider(meterProvider)
		otel.SetTracerProvider(tracerProvider)
		otel.SetTextMapPropagator(propagation.TraceContext{})

		obs.metrics = oteladapters.NewMetricsCollector(meterProvider.Meter(serviceName))
		obs.tracing = oteladapters.NewTracingCollector(tracerProvider.Tracer(serviceName))
		obs.contextualLogger = oteladapters.NewSlogBridgeLoggerWithHandler(logger.Handler())
		obs.shutdownFuncs = append(obs.shutdownFuncs, tracerProvider.Shutdown, meterProvider.Shutdown)
		logger.Info("exporting telemetry via OTLP", "endpoint", cfg.OTLPEndpoint, "insecure", cfg.OTLPInsecure)
	}

	return obs, nil
}

const otlpExportInterval = 15 * time.Second

func traceExporterOptions(cfg config.ServiceConfig) []otlptracegrpc.Option {
	options := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		options = append(options, otlptracegrpc.WithInsecure())
	}

	return options
}

func metricExporterOptions(cfg config.ServiceConfig) []otlpmetricgrpc.Option {
	options := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		options = append(options, otlpmetricgrpc.WithInsecure())
	}

	return options
}

func (o *observability) shutdown(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, fn := range o.shutdownFuncs {
		if err := fn(ctx); err != nil {
			logger.Error("failed to shut down telemetry provider", "error", err.Error())
		}
	}
}
