// Package snapshot persists indexed documents and the shared atom table to
// a SQLite database, so an index survives process restarts without a full
// re-extraction.
package snapshot

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"fidx/internal/slogutil"
)

// DB is a snapshot database connection with transaction helpers.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

// Open opens or creates the snapshot database at path, creating parent
// directories as needed.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	db := &DB{conn: conn, logger: logger, path: path}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// WithTx runs fn inside a transaction, rolling back on error or panic.
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("rollback failed", "error", err, "rollbackError", rbErr)
		}
		return err
	}
	return tx.Commit()
}

const schemaVersion = 1

func (db *DB) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			path       TEXT NOT NULL UNIQUE,
			generation INTEGER NOT NULL,
			source     BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS facts (
			doc_id     INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			fact_id    INTEGER NOT NULL,
			subject    INTEGER NOT NULL,
			predicate  INTEGER NOT NULL,
			value_kind INTEGER NOT NULL,
			value_bits INTEGER NOT NULL,
			confidence REAL NOT NULL,
			generation INTEGER NOT NULL,
			PRIMARY KEY (doc_id, fact_id)
		)`,
		`CREATE TABLE IF NOT EXISTS atoms (
			id   INTEGER PRIMARY KEY CHECK (id = 1),
			blob BLOB NOT NULL
		)`,
	}
	return db.WithTx(func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		_, err := tx.Exec(
			`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
			 ON CONFLICT(key) DO NOTHING`,
			fmt.Sprint(schemaVersion))
		return err
	})
}
