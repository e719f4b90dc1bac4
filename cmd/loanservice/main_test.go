package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/coordinator"
	"github.com/AntonStoeckl/library-loans/shell/config"
	"github.com/AntonStoeckl/library-loans/testutil/observability/testdoubles"
)

func Test_ParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
}

func Test_NewPublisher_DiscardsWithoutBrokers(t *testing.T) {
	logSpy := testdoubles.NewLogHandlerSpy(false)

	publisher, closeFn, err := newPublisher(config.ServiceConfig{}, slog.New(logSpy))

	require.NoError(t, err)
	assert.IsType(t, coordinator.DiscardPublisher{}, publisher)
	assert.NotPanics(t, closeFn)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelInfo, "kafka brokers not configured, loan events are discarded"))
}

func Test_OpenStore_Memory(t *testing.T) {
	logger := slog.New(testdoubles.NewLogHandlerSpy(false))
	obs, err := newObservability(config.ServiceConfig{Metrics: config.MetricsNone}, logger)
	require.NoError(t, err)

	store, closeFn, err := openStore(context.Background(), config.ServiceConfig{Store: config.StoreMemory}, obs, logger)

	require.NoError(t, err)
	assert.NotNil(t, store)
	closeFn()
}

func Test_OpenStore_SQLiteInMemory(t *testing.T) {
	logger := slog.New(testdoubles.NewLogHandlerSpy(false))
	obs, err := newObservability(config.ServiceConfig{Metrics: config.MetricsPrometheus}, logger)
	require.NoError(t, err)
	require.NotNil(t, obs.metricsHandler)

	store, closeFn, err := openStore(context.Background(),
		config.ServiceConfig{Store: config.StoreSQLite, SQLitePath: config.SQLiteMemory}, obs, logger)
	require.NoError(t, err)
	defer closeFn()

	reader, err := store.RegisterReader(context.Background(), "Ada", "Main Street 1", "+12024561111")
	require.NoError(t, err)
	assert.Equal(t, "Ada", reader.Name)
}

func Test_NewObservability_OTel(t *testing.T) {
	handler := testdoubles.NewLogHandlerSpy(false)
	logger := slog.New(handler)

	cfg := config.ServiceConfig{Metrics: config.MetricsOTEL, OTLPEndpoint: "localhost:4317", OTLPInsecure: true}

	obs, err := newObservability(cfg, logger)

	require.NoError(t, err)
	assert.NotNil(t, obs.metrics)
	assert.NotNil(t, obs.tracing)
	assert.Len(t, obs.shutdownFuncs, 2)
	assert.True(t, handler.HasLogWithMessage(slog.LevelInfo, "exporting telemetry via OTLP"))
	obs.shutdown(logger)
}
