// Package store provides the durable local store for the reconciliation
// engine, backed by embedded SQLite.
//
// The store owns six tables: one per entity kind (transactions, tags,
// goals, fixed_expenses) plus two engine-owned tables: the
// pending-operation log and a single-row sync metadata record.
//
// The database runs in embedded mode with WAL enabled, so UI reads stay
// cheap while a sync cycle is writing. Entity deletion is a soft delete:
// the row keeps its data, gains a deleted_at timestamp and drops out of
// every read query, so the deletion itself can be queued and uploaded
// like any other mutation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when an entity row does not exist or has
// already been soft-deleted.
var ErrNotFound = errors.New("entity not found")

// StorageError wraps a local read/write failure. Storage failures are
// fatal to the triggering operation and are never retried by the engine;
// the caller surfaces them to the UI immediately.
type StorageError struct {
	Op  string // the store operation that failed, e.g. "upsert transaction"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr wraps err in a *StorageError unless it is nil or already a
// not-found result.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Store wraps the SQLite connection for the local database.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a new store at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If the database doesn't exist, it is created; call InitSchema before
// first use. The caller MUST call Close() when done.
//
// Example:
//
//	st, err := store.Open(filepath.Join(dataDir, "ledger.db"))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	if err := st.InitSchema(ctx); err != nil {
//	    return err
//	}
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	// WAL keeps UI reads from blocking behind sync-cycle writes.
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := s.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return s, nil
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
// This is idempotent - safe to call multiple times.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	-- Entity tables
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		exchange_rate TEXT,
		type TEXT NOT NULL,  -- INCOME, EXPENSE
		description TEXT,
		source TEXT,
		occurred_at TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'pending',
		deleted_at TEXT
	);

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT,
		owner_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		total_cost TEXT NOT NULL,
		currency TEXT NOT NULL,
		duration_months INTEGER NOT NULL DEFAULT 0,
		monthly_amount TEXT NOT NULL,
		deadline TEXT NOT NULL,
		start_date TEXT NOT NULL,
		saved_amount TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'pending',
		deleted_at TEXT
	);

	CREATE TABLE IF NOT EXISTS fixed_expenses (
		id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		description TEXT,
		due_day INTEGER NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		owner_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		sync_status TEXT NOT NULL DEFAULT 'pending',
		deleted_at TEXT
	);

	-- Engine-owned tables
	CREATE TABLE IF NOT EXISTS pending_operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation TEXT NOT NULL,  -- CREATE, UPDATE, DELETE
		kind TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		payload TEXT NOT NULL,  -- JSON entity snapshot at enqueue time
		created_at TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS sync_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Indexes for UI list queries (owner scoped, soft-deletes excluded)
	CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions(owner_id, deleted_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_occurred ON transactions(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(sync_status);
	CREATE INDEX IF NOT EXISTS idx_tags_owner ON tags(owner_id);
	CREATE INDEX IF NOT EXISTS idx_goals_owner ON goals(owner_id, deleted_at);
	CREATE INDEX IF NOT EXISTS idx_fixed_expenses_owner ON fixed_expenses(owner_id, deleted_at);
	CREATE INDEX IF NOT EXISTS idx_pending_ops_entity ON pending_operations(kind, entity_id);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return storageErr("init schema", err)
	}

	return nil
}

// ClearAll wipes all entity and engine tables. Used on sign-out.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("clear all", err)
	}
	defer tx.Rollback()

	tables := []string{
		"transactions", "tags", "goals", "fixed_expenses",
		"pending_operations", "sync_metadata",
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return storageErr("clear all", fmt.Errorf("failed to clear %s: %w", table, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("clear all", err)
	}
	return nil
}

// timeToNullString converts a time pointer to a nullable string for SQL.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// formatTime renders a required timestamp column.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime reads a required timestamp column, tolerating a bad value
// by returning the zero time.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
