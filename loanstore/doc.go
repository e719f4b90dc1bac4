// Package loanstore defines the storage contract of the loan engine.
//
// A Store gives the engine three things:
//
//   - WithinUnitOfWork: an exclusive, all-or-nothing unit keyed by copy and reader.
//     Everything a loan operation reads and writes goes through the UnitOfWork handed to the callback.
//     If the callback returns an error, nothing is applied.
//   - Point-in-time reads (availability of a copy, borrows and reservations of a reader, identity lookups).
//   - Minimal catalog writes (register a reader, add a copy) so that the engine has something to work on.
//
// Reader-level counts are always derived by query, never stored.
//
// Implementations live in sub-packages: sqlengine (PostgreSQL via pgx.Pool, sql.DB or sqlx.DB, and SQLite)
// and memoryengine. The observability interfaces in this package are dependency-free,
// adapters for OpenTelemetry and Prometheus live in oteladapters and promadapters.
package loanstore
