package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var fs embed.FS

// Dialect names a migration set. Each set lives in a directory of the same
// name.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

var gooseDialects = map[Dialect]string{
	SQLite:   "sqlite3",
	Postgres: "postgres",
}

// Run applies all pending migrations for dialect against db.
func Run(db *sql.DB, dialect Dialect) error {
	name, ok := gooseDialects[dialect]
	if !ok {
		return fmt.Errorf("unknown migration dialect %q", dialect)
	}

	goose.SetBaseFS(fs)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.Up(db, string(dialect)); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
