// Command loadgen drives an in-process loan coordinator with randomized traffic.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AntonStoeckl/library-loans/coordinator"
	"github.com/AntonStoeckl/library-loans/loadgen"
	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/loanstore/memoryengine"
	"github.com/AntonStoeckl/library-loans/loanstore/sqlengine"
	"github.com/AntonStoeckl/library-loans/shell/config"
)

func main() {
	cfg := loadgen.DefaultConfig()
	sqlitePath := flag.String("sqlite-path", "", "SQLite database file, the in-memory store is used when empty")
	duration := flag.Duration("duration", 0, "stop after this long, run until interrupted when zero")
	flag.IntVar(&cfg.Rate, "rate", cfg.Rate, "scenarios per second")
	flag.IntVar(&cfg.Readers, "readers", cfg.Readers, "number of readers to register")
	flag.IntVar(&cfg.Copies, "copies", cfg.Copies, "number of copies to add")
	flag.IntVar(&cfg.LendingWeight, "lending-weight", cfg.LendingWeight, "percent of checkout/return scenarios")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	if err := run(ctx, cfg, *sqlitePath, logger); err != nil {
		logger.Error("load generator failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg loadgen.Config, sqlitePath string, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, sqlitePath, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	loans, err := coordinator.NewLoanCoordinator(store, coordinator.WithLogger(logger))
	if err != nil {
		return err
	}

	generator, err := loadgen.NewGenerator(loans, cfg, logger)
	if err != nil {
		return err
	}

	if err := generator.Seed(ctx); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := generator.Stop(shutdownCtx); err != nil {
			logger.Error("load generator shutdown failed", "error", err.Error())
		}
	}()

	if err := generator.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}

func openStore(ctx context.Context, sqlitePath string, logger *slog.Logger) (loanstore.Store, func(), error) {
	if sqlitePath == "" {
		return memoryengine.NewStore(memoryengine.WithLogger(logger)), func() {}, nil
	}

	db, err := config.SQLiteDB(ctx, sqlitePath)
	if err != nil {
		return nil, nil, err
	}

	store, err := sqlengine.NewStoreFromSQLite(db, sqlengine.WithLogger(logger))
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return store, func() { _ = db.Close() }, nil
}
