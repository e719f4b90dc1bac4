// Package storewrapper creates the loanstore.Store under test, selected by LOANS_TEST_STORE.
package storewrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/loanstore/memoryengine"
	"github.com/AntonStoeckl/library-loans/loanstore/sqlengine"
	"github.com/AntonStoeckl/library-loans/shell/config"
)

// EnvTestStore selects the engine: memory (default), sqlite, pgxpool, sqldb or sqlx.
const EnvTestStore = "LOANS_TEST_STORE"

// Engine kinds.
const (
	KindMemory  = "memory"
	KindSQLite  = "sqlite"
	KindPGXPool = "pgxpool"
	KindSQLDB   = "sqldb"
	KindSQLX    = "sqlx"
)

// Wrapper abstracts over the different engines.
type Wrapper interface {
	Store() loanstore.Store
	Kind() string
	Close()
}

type wrapper struct {
	kind    string
	store   loanstore.Store
	cleanup []func()
}

func (w *wrapper) Store() loanstore.Store { return w.store }

func (w *wrapper) Kind() string { return w.kind }

func (w *wrapper) Close() {
	for i := len(w.cleanup) - 1; i >= 0; i-- {
		w.cleanup[i]()
	}
}

// CreateWrapperWithTestConfig creates the wrapper for the engine named by LOANS_TEST_STORE.
func CreateWrapperWithTestConfig(t testing.TB, options ...sqlengine.Option) Wrapper {
	kind := strings.ToLower(os.Getenv(EnvTestStore))
	if kind == "" {
		kind = KindMemory
	}

	return CreateWrapper(t, kind, options...)
}

// CreateWrapper creates a fresh, migrated store of the given kind and registers Close with t.Cleanup.
// PostgreSQL kinds are skipped unless LOANS_TEST_POSTGRES_DSN is set, each wrapper gets its own table prefix.
// The options only apply to the SQL engines.
func CreateWrapper(t testing.TB, kind string, options ...sqlengine.Option) Wrapper {
	t.Helper()

	ctx := context.Background()
	w := &wrapper{kind: kind}
	t.Cleanup(w.Close)

	switch kind {
	case KindMemory:
		w.store = memoryengine.NewStore()

	case KindSQLite:
		db, err := config.SQLiteDB(ctx, config.SQLiteMemory)
		require.NoError(t, err, "error opening sqlite in test setup")
		w.cleanup = append(w.cleanup, func() { _ = db.Close() })

		store, err := sqlengine.NewStoreFromSQLite(db, options...)
		require.NoError(t, err, "creating the sqlite store failed")
		require.NoError(t, store.Migrate(ctx), "migrating the sqlite store failed")
		w.store = store

	case KindPGXPool, KindSQLDB, KindSQLX:
		w.store = createPostgresStore(t, w, kind, options...)

	default:
		panic(fmt.Sprintf("unsupported store kind: %s", kind))
	}

	return w
}

func createPostgresStore(t testing.TB, w *wrapper, kind string, options ...sqlengine.Option) loanstore.Store {
	dsn := config.PostgresTestDSN()
	if dsn == "" {
		t.Skipf("%s not set, skipping PostgreSQL test", config.EnvTestPostgresDSN)
	}

	ctx := context.Background()
	prefix := "t" + strings.ReplaceAll(uuid.NewString()[:8], "-", "") + "_"
	options = append([]sqlengine.Option{sqlengine.WithTablePrefix(prefix)}, options...)

	var (
		store *sqlengine.Store
		exec  func(string) error
		err   error
	)

	switch kind {
	case KindPGXPool:
		poolConfig, cfgErr := config.PostgresPGXPoolConfig(dsn)
		require.NoError(t, cfgErr, "error parsing the pgx pool config")

		pool, poolErr := pgxpool.NewWithConfig(ctx, poolConfig)
		require.NoError(t, poolErr, "error connecting to DB pool in test setup")
		w.cleanup = append(w.cleanup, pool.Close)

		exec = func(q string) error { _, e := pool.Exec(ctx, q); return e }
		store, err = sqlengine.NewStoreFromPGXPool(pool, options...)

	case KindSQLDB:
		db, dbErr := config.PostgresSQLDB(ctx, dsn)
		require.NoError(t, dbErr, "error connecting to DB in test setup")
		w.cleanup = append(w.cleanup, func() { _ = db.Close() })

		exec = execOn(ctx, db)
		store, err = sqlengine.NewStoreFromSQLDB(db, options...)

	case KindSQLX:
		db, dbErr := config.PostgresSQLX(ctx, dsn)
		require.NoError(t, dbErr, "error connecting to DB in test setup")
		w.cleanup = append(w.cleanup, func() { _ = db.Close() })

		exec = execOn(ctx, db)
		store, err = sqlengine.NewStoreFromSQLX(db, options...)
	}

	require.NoError(t, err, "creating the postgres store failed")
	require.NoError(t, store.Migrate(ctx), "migrating the postgres store failed")

	w.cleanup = append(w.cleanup, func() {
		for _, table := range []string{"borrows", "reserves", "copies", "readers"} {
			_ = exec("DROP TABLE IF EXISTS " + prefix + table + " CASCADE")
		}
	})

	return store
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var _ execer = (*sqlx.DB)(nil)

func execOn(ctx context.Context, db execer) func(string) error {
	return func(q string) error {
		_, err := db.ExecContext(ctx, q)
		return err
	}
}
