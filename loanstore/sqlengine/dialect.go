package sqlengine

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"

	// sqliteTimeLayout has a fixed width so that lexical order equals chronological order.
	sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"
)

// dialect captures what differs between the supported databases.
type dialect struct {
	name             string
	supportsRowLocks bool
	schema           func(t tableNames) []string
}

var (
	postgresDialect = dialect{
		name:             dialectPostgres,
		supportsRowLocks: true,
		schema:           postgresSchema,
	}

	sqliteDialect = dialect{
		name:             dialectSQLite,
		supportsRowLocks: false,
		schema:           sqliteSchema,
	}
)

func (d dialect) builder() goqu.DialectWrapper {
	return goqu.Dialect(d.name)
}

// timeArg converts a timestamp into the representation stored by the dialect.
func (d dialect) timeArg(t time.Time) any {
	if d.name == dialectSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}

	return t.UTC()
}
