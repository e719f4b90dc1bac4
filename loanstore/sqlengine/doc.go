// Package sqlengine provides the SQL implementation of loanstore.Store for PostgreSQL and SQLite.
//
// PostgreSQL is reachable through pgx.Pool, sql.DB (e.g. lib/pq) or sqlx.DB, SQLite through
// a sql.DB opened with the pure Go modernc.org/sqlite driver. All statements are built with goqu
// in the dialect of the connected database.
//
// A unit of work is a read-committed transaction. On PostgreSQL it starts by locking the copy row and
// then the reader row with SELECT ... FOR UPDATE, so concurrent operations on the same copy or the same
// reader queue up instead of racing. SQLite serializes transactions on its single writer connection.
// Partial unique indexes (one open borrow and one active reservation per copy) fence both databases
// against anything that slips past the locks, violations surface as loanstore.ErrConcurrencyConflict.
//
// Call Migrate once to create the schema. It is idempotent.
package sqlengine
