package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/loanstore/memoryengine"
	"github.com/AntonStoeckl/library-loans/loanstore/sqlengine"
	"github.com/AntonStoeckl/library-loans/shell/config"
)

// openStore opens the configured store and creates its schema. The returned func releases the connections.
func openStore(
	ctx context.Context,
	cfg config.ServiceConfig,
	obs *observability,
	logger *slog.Logger,
) (loanstore.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		return memoryengine.NewStore(
			memoryengine.WithLogger(logger),
			memoryengine.WithContextualLogger(obs.contextualLogger),
		), func() {}, nil
	}

	options := []sqlengine.Option{
		sqlengine.WithLogger(logger),
		sqlengine.WithContextualLogger(obs.contextualLogger),
	}

	if obs.metrics != nil {
		options = append(options, sqlengine.WithMetrics(obs.metrics))
	}

	if obs.tracing != nil {
		options = append(options, sqlengine.WithTracing(obs.tracing))
	}

	store, closeFn, err := openSQLStore(ctx, cfg, options)
	if err != nil {
		return nil, nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}

	return store, closeFn, nil
}

func openSQLStore(ctx context.Context, cfg config.ServiceConfig, options []sqlengine.Option) (*sqlengine.Store, func(), error) {
	if cfg.Store == config.StoreSQLite {
		db, err := config.SQLiteDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		store, err := sqlengine.NewStoreFromSQLite(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil
	}

	switch cfg.PostgresDriver {
	case config.DriverSQL:
		return openSQLDBStore(ctx, cfg, options)

	case config.DriverSQLX:
		db, err := config.PostgresSQLX(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := sqlengine.NewStoreFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	default:
		return openPGXStore(ctx, cfg, options)
	}
}

func openSQLDBStore(ctx context.Context, cfg config.ServiceConfig, options []sqlengine.Option) (*sqlengine.Store, func(), error) {
	db, err := config.PostgresSQLDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}

	if cfg.ReplicaDSN == "" {
		store, err := sqlengine.NewStoreFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil
	}

	replica, err := config.PostgresSQLDB(ctx, cfg.ReplicaDSN)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	closeBoth := func() {
		_ = replica.Close()
		_ = db.Close()
	}

	store, err := sqlengine.NewStoreFromSQLDBWithReplica(db, replica, options...)
	if err != nil {
		closeBoth()
		return nil, nil, err
	}

	return store, closeBoth, nil
}

func openPGXStore(ctx context.Context, cfg config.ServiceConfig, options []sqlengine.Option) (*sqlengine.Store, func(), error) {
	primary, err := newPGXPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}

	if cfg.ReplicaDSN == "" {
		store, err := sqlengine.NewStoreFromPGXPool(primary, options...)
		if err != nil {
			primary.Close()
			return nil, nil, err
		}

		return store, primary.Close, nil
	}

	replica, err := newPGXPool(ctx, cfg.ReplicaDSN)
	if err != nil {
		primary.Close()
		return nil, nil, err
	}

	closeBoth := func() {
		replica.Close()
		primary.Close()
	}

	store, err := sqlengine.NewStoreFromPGXPoolWithReplica(primary, replica, options...)
	if err != nil {
		closeBoth()
		return nil, nil, err
	}

	return store, closeBoth, nil
}

func newPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := config.PostgresPGXPoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	return pgxpool.NewWithConfig(ctx, poolConfig)
}
