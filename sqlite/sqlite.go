// Package sqlite keeps the run ledger in a SQLite database: runs, issue
// outcomes, diagnostics and, in audit mode, article fingerprints and hyphen
// merge provenance.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Another run may hold the ledger; wait instead of failing immediately.
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL is not supported for in-memory databases.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.db = conn

	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}

// createSchema creates the database tables if they don't exist.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			revision TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL DEFAULT '',
			workers INTEGER NOT NULL DEFAULT 0,
			aborted INTEGER NOT NULL DEFAULT 0,
			issues_requested INTEGER NOT NULL DEFAULT 0,
			issues_attempted INTEGER NOT NULL DEFAULT 0,
			succeeded INTEGER NOT NULL DEFAULT 0,
			partial INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			articles INTEGER NOT NULL DEFAULT 0,
			pages INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			issue TEXT NOT NULL,
			status TEXT NOT NULL,
			stage TEXT NOT NULL,
			pages_parsed INTEGER NOT NULL DEFAULT 0,
			pages_expected INTEGER NOT NULL DEFAULT 0,
			articles_declared INTEGER NOT NULL DEFAULT 0,
			articles INTEGER NOT NULL DEFAULT 0,
			digest TEXT NOT NULL DEFAULT '',
			output TEXT NOT NULL DEFAULT '',
			elapsed_seconds REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, issue)
		);

		CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT NOT NULL,
			issue TEXT NOT NULL,
			position INTEGER NOT NULL,
			stage TEXT NOT NULL,
			code TEXT NOT NULL,
			severity TEXT NOT NULL,
			ref TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, issue, position),
			FOREIGN KEY (run_id, issue) REFERENCES outcomes(run_id, issue) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS articles (
			run_id TEXT NOT NULL,
			issue TEXT NOT NULL,
			article_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			text_hash TEXT NOT NULL,
			word_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, issue, article_id),
			FOREIGN KEY (run_id, issue) REFERENCES outcomes(run_id, issue) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS hyphen_merges (
			run_id TEXT NOT NULL,
			issue TEXT NOT NULL,
			article_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			head TEXT NOT NULL,
			tail TEXT NOT NULL,
			merged TEXT NOT NULL,
			PRIMARY KEY (run_id, issue, article_id, position),
			FOREIGN KEY (run_id, issue) REFERENCES outcomes(run_id, issue) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_outcomes_issue ON outcomes(issue);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := db.db.Exec(schema)
	return err
}
