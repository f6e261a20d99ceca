package store

import (
	"context"
	"database/sql"
	"time"
)

const lastSyncKey = "last_sync_at"

// LastSyncAt returns the timestamp of the last fully successful sync
// cycle, or nil if no cycle has completed (or the record was cleared to
// force a full re-pull).
func (s *Store) LastSyncAt(ctx context.Context) (*time.Time, error) {
	var value string
	err := s.conn.QueryRowContext(ctx,
		"SELECT value FROM sync_metadata WHERE key = ?", lastSyncKey).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read last sync time", err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, storageErr("read last sync time", err)
	}
	return &t, nil
}

// SetLastSyncAt records the completion time of a successful sync cycle.
func (s *Store) SetLastSyncAt(ctx context.Context, t time.Time) error {
	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO sync_metadata (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		lastSyncKey, formatTime(t),
	)
	return storageErr("set last sync time", err)
}

// ClearLastSyncAt removes the last-sync record, forcing the next cycle
// to behave like a first-ever full pull.
func (s *Store) ClearLastSyncAt(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx,
		"DELETE FROM sync_metadata WHERE key = ?", lastSyncKey)
	return storageErr("clear last sync time", err)
}
