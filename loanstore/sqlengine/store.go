package sqlengine

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/loanstore/sqlengine/internal/adapters"
)

// Store is the SQL implementation of loanstore.Store.
type Store struct {
	db               adapters.DBAdapter
	dialect          dialect
	builder          goqu.DialectWrapper
	tables           tableNames
	logger           loanstore.Logger
	contextualLogger loanstore.ContextualLogger
	metricsCollector loanstore.MetricsCollector
	tracingCollector loanstore.TracingCollector
}

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithTablePrefix prefixes all table and index names, e.g. to run isolated test schemas side by side.
func WithTablePrefix(prefix string) Option {
	return func(s *Store) error {
		if prefix == "" {
			return loanstore.ErrEmptyTablePrefix
		}

		s.tables = newTableNames(prefix)

		return nil
	}
}

// WithLogger sets the logger for the Store.
//
// Debug level: SQL statements with execution timing (development use)
// Info level: schema migrations (production-safe)
// Error level: failures that abort an operation.
func WithLogger(logger loanstore.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store. It takes precedence over WithLogger.
func WithContextualLogger(logger loanstore.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives unit of work and read durations, database errors and concurrency conflicts.
func WithMetrics(collector loanstore.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store. Every unit of work and every read gets a span.
func WithTracing(collector loanstore.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}

// NewStoreFromPGXPool creates a PostgreSQL Store using a pgx Pool.
func NewStoreFromPGXPool(pool *pgxpool.Pool, options ...Option) (*Store, error) {
	if pool == nil {
		return nil, loanstore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(pool), postgresDialect, options...)
}

// NewStoreFromPGXPoolWithReplica creates a PostgreSQL Store that serves eventually consistent reads from a replica pool.
func NewStoreFromPGXPoolWithReplica(pool *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Store, error) {
	if pool == nil || replica == nil {
		return nil, loanstore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapterWithReplica(pool, replica), postgresDialect, options...)
}

// NewStoreFromSQLDB creates a PostgreSQL Store using a sql.DB, e.g. opened with lib/pq.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, loanstore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), postgresDialect, options...)
}

// NewStoreFromSQLDBWithReplica is NewStoreFromSQLDB with eventually consistent reads served by replica.
func NewStoreFromSQLDBWithReplica(db *sql.DB, replica *sql.DB, options ...Option) (*Store, error) {
	if db == nil || replica == nil {
		return nil, loanstore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapterWithReplica(db, replica), postgresDialect, options...)
}

// NewStoreFromSQLX creates a PostgreSQL Store using a sqlx.DB.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, loanstore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), postgresDialect, options...)
}

// NewStoreFromSQLite creates a SQLite Store using a sql.DB opened with the "sqlite" driver.
// The caller should limit the pool to one open connection, see config.SQLiteDB.
func NewStoreFromSQLite(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, loanstore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), sqliteDialect, options...)
}

// NewStoreFromSQLiteWithReplica reads from replica when the context allows eventual consistency.
// Keeping the replica file in sync is left to the operator, e.g. with Litestream.
func NewStoreFromSQLiteWithReplica(db *sql.DB, replica *sql.DB, options ...Option) (*Store, error) {
	if db == nil || replica == nil {
		return nil, loanstore.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapterWithReplica(db, replica), sqliteDialect, options...)
}

func newStore(db adapters.DBAdapter, d dialect, options ...Option) (*Store, error) {
	s := &Store{
		db:      db,
		dialect: d,
		builder: d.builder(),
		tables:  newTableNames(""),
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Migrate creates tables and indexes if they don't exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	statements := s.dialect.schema(s.tables)

	for _, statement := range statements {
		start := time.Now()

		if _, err := s.db.Exec(ctx, statement); err != nil {
			s.logError(ctx, "migrate", err)
			return loanstore.Failure(loanstore.ErrMigrationFailed, err)
		}

		s.logQueryWithDuration(ctx, statement, "migrate", time.Since(start))
	}

	s.logOperation(ctx, logMsgMigrated, logAttrStatements, len(statements), spanAttrDialect, s.dialect.name)

	return nil
}
