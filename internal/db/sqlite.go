package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/captolab/gpuhub/internal/config"
	_ "github.com/mattn/go-sqlite3"
)

// openSQLite opens the embedded database file, creating its directory on
// first run. WAL keeps quota reads unblocked while execution records are
// written; the pool is capped at one connection since sqlite admits a
// single writer.
func openSQLite(cfg *config.Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	opts := url.Values{}
	opts.Set("_journal_mode", "WAL")
	opts.Set("_foreign_keys", "on")
	opts.Set("_busy_timeout", strconv.Itoa(cfg.DBBusyTimeoutMs))

	db, err := sql.Open("sqlite3", cfg.DBPath+"?"+opts.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}
