package sqlengine

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/AntonStoeckl/library-loans/loanstore"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	errorTypeConflict = "concurrency_conflict"
	errorTypeDatabase = "database_error"
	errorTypeCanceled = "context_canceled"
	errorTypeTimeout  = "context_deadline_exceeded"
)

// isConflict reports whether a driver error means another transaction got to the same rows first.
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isPostgresConflictCode(pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isPostgresConflictCode(string(pqErr.Code))
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		primary := code & 0xff

		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			primary == sqlite3.SQLITE_BUSY ||
			primary == sqlite3.SQLITE_LOCKED
	}

	return false
}

func isPostgresConflictCode(code string) bool {
	return code == pgUniqueViolation || code == pgSerializationFailure || code == pgDeadlockDetected
}

// classify wraps a driver error into the loanstore error taxonomy.
func classify(kind error, err error) error {
	if isConflict(err) {
		return loanstore.Conflict(err)
	}

	return loanstore.Failure(kind, err)
}

// errorType returns the metric label for an error.
func errorType(err error) string {
	switch {
	case errors.Is(err, loanstore.ErrConcurrencyConflict):
		return errorTypeConflict
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeTimeout
	default:
		return errorTypeDatabase
	}
}
