package loanstore

import "errors"

var (
	// ErrNilDatabaseConnection is returned when an engine is created without a database handle.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTablePrefix is returned when WithTablePrefix gets an empty prefix.
	ErrEmptyTablePrefix = errors.New("table prefix must not be empty")

	// ErrNotFound is returned when a reader, copy, borrow or reservation does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStoreFailure marks every failure of the underlying persistence. It is never a business outcome.
	ErrStoreFailure = errors.New("loan store failure")

	// ErrConcurrencyConflict is returned when a concurrent unit of work changed the same copy first,
	// e.g. a unique index on active borrows rejected the insert. It always comes joined with ErrStoreFailure.
	ErrConcurrencyConflict = errors.New("concurrency conflict, the copy was changed by another unit of work")

	// ErrBuildingQueryFailed is returned when a SQL statement can't be built.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrQueryingFailed is returned when a SQL query fails.
	ErrQueryingFailed = errors.New("querying failed")

	// ErrScanningDBRowFailed is returned when a row can't be scanned.
	ErrScanningDBRowFailed = errors.New("scanning db row failed")

	// ErrWritingFailed is returned when an insert or update fails.
	ErrWritingFailed = errors.New("writing failed")

	// ErrBeginTxFailed is returned when a transaction can't be started.
	ErrBeginTxFailed = errors.New("beginning transaction failed")

	// ErrCommitFailed is returned when a transaction can't be committed.
	ErrCommitFailed = errors.New("committing transaction failed")

	// ErrMigrationFailed is returned when the schema can't be created.
	ErrMigrationFailed = errors.New("schema migration failed")

	// ErrInvalidLockKey is returned when a unit of work is requested without a copy or reader.
	ErrInvalidLockKey = errors.New("unit of work needs a copy and a reader")
)

// IsStoreFailure reports whether err originates from the persistence layer.
func IsStoreFailure(err error) bool {
	return errors.Is(err, ErrStoreFailure)
}

// Failure wraps cause as a store failure of the given kind.
func Failure(kind error, cause error) error {
	return errors.Join(ErrStoreFailure, kind, cause)
}

// Conflict wraps cause as a retryable concurrency conflict.
func Conflict(cause error) error {
	return errors.Join(ErrStoreFailure, ErrConcurrencyConflict, cause)
}
