package config

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql and sqlx
)

// Pool sizing for the lib/pq backed adapters. Borrow transactions are short,
// so a wide pool with few idle connections fits the checkout rush at opening hours.
const (
	sqlMaxOpenConns    = 50
	sqlMaxIdleConns    = 2
	sqlConnMaxLifetime = time.Hour
	sqlConnMaxIdleTime = 5 * time.Minute
)

// PostgresPGXPoolConfig parses dsn and applies the pool limits used by the pgx adapter.
func PostgresPGXPoolConfig(dsn string) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	poolConfig.MinConns, poolConfig.MaxConns = 2, 8
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.ConnectTimeout = 5 * time.Second

	return poolConfig, nil
}

// PostgresSQLDB opens a lib/pq *sql.DB and pings it.
func PostgresSQLDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err = tunedAndReachable(ctx, db); err != nil {
		return nil, err
	}

	return db, nil
}

// PostgresSQLX is PostgresSQLDB wrapped for sqlx.
func PostgresSQLX(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := PostgresSQLDB(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return sqlx.NewDb(db, "postgres"), nil
}

func tunedAndReachable(ctx context.Context, db *sql.DB) error {
	db.SetMaxOpenConns(sqlMaxOpenConns)
	db.SetMaxIdleConns(sqlMaxIdleConns)
	db.SetConnMaxLifetime(sqlConnMaxLifetime)
	db.SetConnMaxIdleTime(sqlConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	return nil
}
