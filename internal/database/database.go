// Package database opens the SQLite database and initializes tables.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Pass ":memory:" for an ephemeral database in tests.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to make database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database at path %q: %w", path, err)
	}

	// A single connection keeps SQLite writes serialized and makes
	// :memory: databases usable across the pool.
	db.SetMaxOpenConns(1)

	if err := InitTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	return db, nil
}

// InitTables initializes the SQL tables.
func InitTables(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inits := []func(*sql.Tx) error{
		initChannelsTable,
		initVideosTable,
		initCommentsTable,
		initSyncJobsTable,
		initQueueTable,
		initSyncConfigTable,
		initErrorLogsTable,
		initHistoryTable,
	}
	for _, fn := range inits {
		if err := fn(tx); err != nil {
			return err
		}
	}
	return tx.Commit()
}
