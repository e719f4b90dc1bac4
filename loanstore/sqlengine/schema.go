package sqlengine

import "fmt"

// tableNames holds the (optionally prefixed) table and index names.
type tableNames struct {
	prefix   string
	readers  string
	copies   string
	borrows  string
	reserves string
}

func newTableNames(prefix string) tableNames {
	return tableNames{
		prefix:   prefix,
		readers:  prefix + "readers",
		copies:   prefix + "copies",
		borrows:  prefix + "borrows",
		reserves: prefix + "reserves",
	}
}

func postgresSchema(t tableNames) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT ''
		)`, t.readers),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			book_id UUID NOT NULL,
			branch_id UUID NOT NULL,
			number INTEGER NOT NULL,
			UNIQUE (book_id, branch_id, number)
		)`, t.copies),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			copy_id UUID NOT NULL REFERENCES %s (id),
			reader_id UUID NOT NULL REFERENCES %s (id),
			borrowed_at TIMESTAMPTZ NOT NULL,
			returned_at TIMESTAMPTZ NULL,
			fine NUMERIC(10, 1) NULL
		)`, t.borrows, t.copies, t.readers),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %sborrows_one_active_per_copy ON %s (copy_id) WHERE returned_at IS NULL`,
			t.prefix, t.borrows),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %sborrows_by_reader ON %s (reader_id, borrowed_at)`, t.prefix, t.borrows),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			copy_id UUID NOT NULL REFERENCES %s (id),
			reader_id UUID NOT NULL REFERENCES %s (id),
			reserved_at TIMESTAMPTZ NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`, t.reserves, t.copies, t.readers),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %sreserves_one_active_per_copy ON %s (copy_id) WHERE active`,
			t.prefix, t.reserves),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %sreserves_by_reader ON %s (reader_id, reserved_at)`, t.prefix, t.reserves),
	}
}

func sqliteSchema(t tableNames) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT ''
		)`, t.readers),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			book_id TEXT NOT NULL,
			branch_id TEXT NOT NULL,
			number INTEGER NOT NULL,
			UNIQUE (book_id, branch_id, number)
		)`, t.copies),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			copy_id TEXT NOT NULL REFERENCES %s (id),
			reader_id TEXT NOT NULL REFERENCES %s (id),
			borrowed_at TEXT NOT NULL,
			returned_at TEXT NULL,
			fine TEXT NULL
		)`, t.borrows, t.copies, t.readers),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %sborrows_one_active_per_copy ON %s (copy_id) WHERE returned_at IS NULL`,
			t.prefix, t.borrows),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %sborrows_by_reader ON %s (reader_id, borrowed_at)`, t.prefix, t.borrows),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			copy_id TEXT NOT NULL REFERENCES %s (id),
			reader_id TEXT NOT NULL REFERENCES %s (id),
			reserved_at TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		)`, t.reserves, t.copies, t.readers),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %sreserves_one_active_per_copy ON %s (copy_id) WHERE active = 1`,
			t.prefix, t.reserves),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %sreserves_by_reader ON %s (reader_id, reserved_at)`, t.prefix, t.reserves),
	}
}
