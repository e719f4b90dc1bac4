// Command loanservice serves the library loan API over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/AntonStoeckl/library-loans/coordinator"
	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/httpapi"
	"github.com/AntonStoeckl/library-loans/publisher/kafkapublisher"
	"github.com/AntonStoeckl/library-loans/shell/config"
)

const serviceName = "library-loans"

func main() {
	cfg := config.LoadServiceConfig()
	applyFlags(&cfg)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	if err := run(cfg, logger); err != nil {
		logger.Error("loan service stopped with error", "error", err.Error())
		os.Exit(1)
	}
}

func applyFlags(cfg *config.ServiceConfig) {
	flag.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "store kind: postgres, sqlite or memory")
	flag.StringVar(&cfg.PostgresDriver, "postgres-driver", cfg.PostgresDriver, "PostgreSQL driver: pgx, sql or sqlx")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file")
	flag.StringVar(&cfg.Metrics, "metrics", cfg.Metrics, "metrics backend: otel, prometheus or none")
	flag.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP gRPC collector host:port for the otel backend")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	flag.IntVar(&cfg.Policy.MaxActiveBorrows, "max-borrows", cfg.Policy.MaxActiveBorrows, "maximum active borrows per reader")
	flag.IntVar(&cfg.Policy.MaxActiveReserves, "max-reserves", cfg.Policy.MaxActiveReserves, "maximum active reservations per reader")
	flag.Parse()
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}

	return level
}

func run(cfg config.ServiceConfig, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	cfg.LogConfiguration(logger.Info)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := newObservability(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up observability: %w", err)
	}
	defer obs.shutdown(logger)

	store, closeStore, err := openStore(ctx, cfg, obs, logger)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	defer closeStore()

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create loan event publisher: %w", err)
	}
	defer closePublisher()

	loans, err := coordinator.NewLoanCoordinator(store,
		coordinator.WithPolicy(cfg.Policy),
		coordinator.WithPublisher(publisher),
		coordinator.WithLogger(logger),
		coordinator.WithContextualLogger(obs.contextualLogger),
		coordinator.WithMetrics(obs.metrics),
		coordinator.WithTracing(obs.tracing),
	)
	if err != nil {
		return fmt.Errorf("failed to create loan coordinator: %w", err)
	}

	router := httprouter.New()
	httpapi.NewHandler(loans, httpapi.WithLogger(logger)).RegisterRoutes(router)

	if obs.metricsHandler != nil {
		router.Handler(http.MethodGet, "/metrics", obs.metricsHandler)
	}

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.Chain(router,
			httpapi.Recovery(logger),
			httpapi.RequestLogging(logger),
			httpapi.RequestMetrics(obs.metrics),
			httpapi.RequestTimeout(cfg.RequestTimeout),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("loan service listening", "addr", cfg.HTTPAddr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}

		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down loan service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	return nil
}

func newPublisher(cfg config.ServiceConfig, logger *slog.Logger) (core.LoanEventPublisher, func(), error) {
	if !cfg.KafkaEnabled() {
		logger.Info("kafka brokers not configured, loan events are discarded")
		return coordinator.DiscardPublisher{}, func() {}, nil
	}

	publisher, err := kafkapublisher.NewPublisher(
		kafkapublisher.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic},
		kafkapublisher.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}

	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close kafka publisher", "error", err.Error())
		}
	}, nil
}
