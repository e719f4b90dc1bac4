// Package config provides database and service configuration for the loan service.
//
// It contains factory functions for PostgreSQL connections through the supported drivers
// (pgx.Pool, sql.DB with lib/pq, sqlx.DB), a SQLite connection through modernc.org/sqlite,
// and the environment-driven ServiceConfig used by cmd/loanservice.
package config
