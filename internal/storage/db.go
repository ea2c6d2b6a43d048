// Package storage is the SQLite backend: snapshots and the session in a
// key-value table, user accounts, and the remote record table.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// DB is an open, migrated SQLite database.
type DB struct {
	db            *sql.DB
	schemaVersion uint
}

// Open creates the parent directory, applies migrations and opens dbPath.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := migrateUp(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer avoids SQLITE_BUSY between the bridge and replicators
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the migration version the database was opened at.
func (d *DB) SchemaVersion() uint { return d.schemaVersion }

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
