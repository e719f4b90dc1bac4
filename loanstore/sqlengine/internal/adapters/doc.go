// Package adapters provide database adapter implementations for the SQL loan store.
//
// This package implements the adapter pattern to support multiple database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, so the store works the same with any supported connection type.
// SQLite goes through the sql.DB adapter.
package adapters
