package db

import (
	"database/sql"
	"fmt"

	"github.com/captolab/gpuhub/migrations"
	"github.com/pressly/goose/v3"
)

// Migrate runs all pending goose migrations against the open database.
// The config driver name maps onto the goose dialect here; callers pass
// the same value they gave Open.
func Migrate(db *sql.DB, driver string) error {
	dialect := driver
	if driver == "sqlite" {
		dialect = "sqlite3"
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
