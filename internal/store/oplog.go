package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avasilenko/pocketledger/internal/model"
)

// The pending-operation log is a durable FIFO queue of local mutations
// awaiting upload. Rows are appended by the entity write path (inside
// the same transaction as the entity write) and drained by the engine's
// upload phase in auto-increment id order.

// enqueueTx appends a pending operation carrying a full snapshot of the
// entity at enqueue time. Runs on the caller's transaction so the queue
// entry commits atomically with the entity write.
func enqueueTx(ctx context.Context, q dbtx, op model.Operation, e model.Entity) error {
	payload, err := model.NewPayload(e)
	if err != nil {
		return err
	}

	pending := model.PendingOperation{
		Operation: op,
		Kind:      e.EntityKind(),
		EntityID:  e.EntityID(),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := pending.Validate(); err != nil {
		return fmt.Errorf("invalid pending operation: %w", err)
	}

	raw, err := json.Marshal(pending.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = q.ExecContext(ctx, `
	INSERT INTO pending_operations (operation, kind, entity_id, payload, created_at, attempts)
	VALUES (?, ?, ?, ?, ?, 0)`,
		string(pending.Operation), string(pending.Kind), pending.EntityID,
		string(raw), formatTime(pending.CreatedAt),
	)
	return err
}

// ListPendingOps returns all queued operations in FIFO order.
func (s *Store) ListPendingOps(ctx context.Context) ([]*model.PendingOperation, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, operation, kind, entity_id, payload, created_at, attempts
	FROM pending_operations
	ORDER BY id ASC`)
	if err != nil {
		return nil, storageErr("list pending operations", err)
	}
	defer rows.Close()

	var ops []*model.PendingOperation
	for rows.Next() {
		var op model.PendingOperation
		var operation, kind, payload, createdAt string

		if err := rows.Scan(&op.ID, &operation, &kind, &op.EntityID, &payload, &createdAt, &op.Attempts); err != nil {
			return nil, storageErr("scan pending operation", err)
		}

		op.Operation = model.Operation(operation)
		op.Kind = model.Kind(kind)
		op.CreatedAt = parseTime(createdAt)
		if err := json.Unmarshal([]byte(payload), &op.Payload); err != nil {
			return nil, storageErr("scan pending operation",
				fmt.Errorf("failed to unmarshal payload for op %d: %w", op.ID, err))
		}

		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list pending operations", err)
	}
	return ops, nil
}

// RemoveOp deletes a queued operation. Idempotent.
func (s *Store) RemoveOp(ctx context.Context, opID int64) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM pending_operations WHERE id = ?", opID)
	return storageErr("remove operation", err)
}

// IncrementAttempts bumps the failed-upload counter for a queued
// operation and returns the new count.
func (s *Store) IncrementAttempts(ctx context.Context, opID int64) (int, error) {
	res, err := s.conn.ExecContext(ctx,
		"UPDATE pending_operations SET attempts = attempts + 1 WHERE id = ?", opID)
	if err != nil {
		return 0, storageErr("increment attempts", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("pending operation %d: %w", opID, ErrNotFound)
	}

	var attempts int
	err = s.conn.QueryRowContext(ctx,
		"SELECT attempts FROM pending_operations WHERE id = ?", opID).Scan(&attempts)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("pending operation %d: %w", opID, ErrNotFound)
	}
	if err != nil {
		return 0, storageErr("increment attempts", err)
	}
	return attempts, nil
}

// PendingCount returns the number of queued operations.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_operations").Scan(&count)
	if err != nil {
		return 0, storageErr("pending count", err)
	}
	return count, nil
}
