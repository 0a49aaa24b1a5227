package ccnorm

// Database driver imports for side-effect registration with database/sql.
// These drivers back the SQL confusable table source.

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// driverAliases maps configuration names to registered driver names.
var driverAliases = map[string]string{
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"postgres":   "postgres",
	"postgresql": "postgres",
	"pq":         "postgres",
	"mysql":      "mysql",
}

// Open opens a database for the SQL provider. driver is one of sqlite,
// postgres or mysql (or an alias such as postgresql).
func Open(driver, dsn string) (*sql.DB, error) {
	name, ok := driverAliases[driver]
	if !ok {
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	return db, nil
}

// IsDriver reports whether driver names a supported database driver.
func IsDriver(driver string) bool {
	_, ok := driverAliases[driver]
	return ok
}
