package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avasilenko/pocketledger/internal/model"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the per-kind helpers
// can run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Upsert writes an entity row with sync status pending and appends the
// matching pending operation (CREATE when isNew, UPDATE otherwise) in a
// single transaction. A failed write can never leave a queued operation
// behind.
//
// The stored entity is returned with its sync status set.
func (s *Store) Upsert(ctx context.Context, e model.Entity, isNew bool) (model.Entity, error) {
	if err := e.Validate(); err != nil {
		return nil, storageErr("upsert", fmt.Errorf("invalid %s: %w", e.EntityKind(), err))
	}

	op := model.OpUpdate
	if isNew {
		op = model.OpCreate
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("upsert", err)
	}
	defer tx.Rollback()

	setSyncStatus(e, model.StatusPending)

	if err := upsertEntityTx(ctx, tx, e); err != nil {
		return nil, storageErr(fmt.Sprintf("upsert %s", e.EntityKind()), err)
	}

	if err := enqueueTx(ctx, tx, op, e); err != nil {
		return nil, storageErr("enqueue operation", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("upsert", err)
	}

	return e, nil
}

// SoftDelete marks the row deleted, flips it back to pending and queues
// a DELETE operation carrying a snapshot of the row. The row stays
// physically present but drops out of all read queries.
//
// Returns ErrNotFound if the row does not exist or is already deleted.
// Tags do not support soft delete; tag removal is owned by the remote
// API and arrives via bulk download.
func (s *Store) SoftDelete(ctx context.Context, kind model.Kind, id string) error {
	if kind == model.KindTag {
		return storageErr("soft delete", fmt.Errorf("kind %s does not support soft delete", kind))
	}
	table, err := tableFor(kind)
	if err != nil {
		return storageErr("soft delete", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("soft delete", err)
	}
	defer tx.Rollback()

	// Snapshot the live row first; the DELETE upload needs it.
	e, err := getEntityTx(ctx, tx, kind, id)
	if err != nil {
		return storageErr(fmt.Sprintf("soft delete %s", kind), err)
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE "+table+" SET deleted_at = ?, sync_status = ? WHERE id = ? AND deleted_at IS NULL",
		formatTime(now), model.StatusPending, id,
	)
	if err != nil {
		return storageErr(fmt.Sprintf("soft delete %s", kind), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("soft delete %s %q: %w", kind, id, ErrNotFound)
	}

	if err := enqueueTx(ctx, tx, model.OpDelete, e); err != nil {
		return storageErr("enqueue operation", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("soft delete", err)
	}
	return nil
}

// MarkSynced sets the row's sync status to synced. Called by the engine
// after the remote API acknowledges the matching pending operation.
func (s *Store) MarkSynced(ctx context.Context, kind model.Kind, id string) error {
	table, err := tableFor(kind)
	if err != nil {
		return storageErr("mark synced", err)
	}
	_, err = s.conn.ExecContext(ctx,
		"UPDATE "+table+" SET sync_status = ? WHERE id = ?",
		model.StatusSynced, id,
	)
	return storageErr(fmt.Sprintf("mark synced %s", kind), err)
}

// BulkMerge inserts remote records whose id does not already exist
// locally. Existing rows are never updated: a local row still pending
// upload always wins over remote state until it uploads and flips to
// synced. The existence check includes soft-deleted rows, so a deletion
// queued on this device is not resurrected by a download.
//
// Records owned by a different user are skipped. Inserted rows are
// marked synced (they came from the remote authority). Running the same
// merge twice inserts nothing the second time.
//
// Returns the number of rows inserted.
func (s *Store) BulkMerge(ctx context.Context, kind model.Kind, records []model.Entity, ownerID string) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, storageErr("bulk merge", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("bulk merge", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, e := range records {
		if e.EntityKind() != kind {
			return inserted, storageErr("bulk merge",
				fmt.Errorf("record %q has kind %s, want %s", e.EntityID(), e.EntityKind(), kind))
		}
		if e.Owner() != ownerID {
			continue
		}
		if err := e.Validate(); err != nil {
			return inserted, storageErr("bulk merge", fmt.Errorf("invalid %s %q: %w", kind, e.EntityID(), err))
		}

		var exists int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+table+" WHERE id = ?", e.EntityID(),
		).Scan(&exists)
		if err != nil {
			return inserted, storageErr(fmt.Sprintf("bulk merge %s", kind), err)
		}
		if exists > 0 {
			continue
		}

		setSyncStatus(e, model.StatusSynced)
		if err := insertEntityTx(ctx, tx, e); err != nil {
			return inserted, storageErr(fmt.Sprintf("bulk merge %s", kind), err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, storageErr("bulk merge", err)
	}
	return inserted, nil
}

// TransactionFilter narrows ListTransactions results.
type TransactionFilter struct {
	// Type filters by transaction type (empty = both).
	Type model.TransactionType
	// From/Until bound the event time (zero = unbounded).
	From  time.Time
	Until time.Time
	// Limit restricts the number of results (0 = no limit).
	Limit int
}

// ListTransactions returns the owner's transactions, newest event first,
// excluding soft-deleted rows.
func (s *Store) ListTransactions(ctx context.Context, ownerID string, filter TransactionFilter) ([]*model.Transaction, error) {
	conditions := []string{"owner_id = ?", "deleted_at IS NULL"}
	args := []interface{}{ownerID}

	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "occurred_at <= ?")
		args = append(args, formatTime(filter.Until))
	}

	query := `
	SELECT id, amount, currency, exchange_rate, type, description, source,
	       occurred_at, owner_id, created_at, updated_at, sync_status, deleted_at
	FROM transactions
	WHERE ` + strings.Join(conditions, " AND ") + `
	ORDER BY occurred_at DESC, id ASC`

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListTags returns the owner's tags ordered by name.
func (s *Store) ListTags(ctx context.Context, ownerID string) ([]*model.Tag, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, name, color, owner_id, created_at, sync_status
	FROM tags
	WHERE owner_id = ?
	ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, storageErr("list tags", err)
	}
	defer rows.Close()

	var tags []*model.Tag
	for rows.Next() {
		var t model.Tag
		var color sql.NullString
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &color, &t.OwnerID, &createdAt, &t.SyncStatus); err != nil {
			return nil, storageErr("scan tag", err)
		}
		t.Color = color.String
		t.CreatedAt = parseTime(createdAt)
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list tags", err)
	}
	return tags, nil
}

// ListGoals returns the owner's goals, newest first, excluding
// soft-deleted rows.
func (s *Store) ListGoals(ctx context.Context, ownerID string) ([]*model.Goal, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, title, description, total_cost, currency, duration_months,
	       monthly_amount, deadline, start_date, saved_amount,
	       owner_id, created_at, sync_status, deleted_at
	FROM goals
	WHERE owner_id = ? AND deleted_at IS NULL
	ORDER BY created_at DESC, id ASC`, ownerID)
	if err != nil {
		return nil, storageErr("list goals", err)
	}
	defer rows.Close()

	var goals []*model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, storageErr("scan goal", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list goals", err)
	}
	return goals, nil
}

// ListFixedExpenses returns the owner's fixed expenses ordered by due
// day, excluding soft-deleted rows.
func (s *Store) ListFixedExpenses(ctx context.Context, ownerID string) ([]*model.FixedExpense, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, amount, currency, description, due_day, is_active,
	       owner_id, created_at, sync_status, deleted_at
	FROM fixed_expenses
	WHERE owner_id = ? AND deleted_at IS NULL
	ORDER BY due_day ASC, id ASC`, ownerID)
	if err != nil {
		return nil, storageErr("list fixed expenses", err)
	}
	defer rows.Close()

	var expenses []*model.FixedExpense
	for rows.Next() {
		f, err := scanFixedExpense(rows)
		if err != nil {
			return nil, storageErr("scan fixed expense", err)
		}
		expenses = append(expenses, f)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list fixed expenses", err)
	}
	return expenses, nil
}

// GetTransaction retrieves a single live transaction by id.
// Returns ErrNotFound if the row is absent or soft-deleted.
func (s *Store) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	e, err := getEntityTx(ctx, s.conn, model.KindTransaction, id)
	if err != nil {
		return nil, err
	}
	return e.(*model.Transaction), nil
}

// GetGoal retrieves a single live goal by id.
func (s *Store) GetGoal(ctx context.Context, id string) (*model.Goal, error) {
	e, err := getEntityTx(ctx, s.conn, model.KindGoal, id)
	if err != nil {
		return nil, err
	}
	return e.(*model.Goal), nil
}

// GetFixedExpense retrieves a single live fixed expense by id.
func (s *Store) GetFixedExpense(ctx context.Context, id string) (*model.FixedExpense, error) {
	e, err := getEntityTx(ctx, s.conn, model.KindFixedExpense, id)
	if err != nil {
		return nil, err
	}
	return e.(*model.FixedExpense), nil
}

// StuckCount counts entity rows left permanently pending: rows whose
// sync status is pending but which no queued operation will ever upload
// (their operation was evicted after repeated failures). These are
// surfaced to the UI rather than silently abandoned.
func (s *Store) StuckCount(ctx context.Context) (int, error) {
	query := `
	SELECT
		(SELECT COUNT(*) FROM transactions t WHERE t.sync_status = 'pending'
		   AND NOT EXISTS (SELECT 1 FROM pending_operations p WHERE p.kind = 'transaction' AND p.entity_id = t.id))
	  + (SELECT COUNT(*) FROM tags g WHERE g.sync_status = 'pending'
		   AND NOT EXISTS (SELECT 1 FROM pending_operations p WHERE p.kind = 'tag' AND p.entity_id = g.id))
	  + (SELECT COUNT(*) FROM goals g WHERE g.sync_status = 'pending'
		   AND NOT EXISTS (SELECT 1 FROM pending_operations p WHERE p.kind = 'goal' AND p.entity_id = g.id))
	  + (SELECT COUNT(*) FROM fixed_expenses f WHERE f.sync_status = 'pending'
		   AND NOT EXISTS (SELECT 1 FROM pending_operations p WHERE p.kind = 'fixedExpense' AND p.entity_id = f.id))
	`
	var count int
	if err := s.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, storageErr("stuck count", err)
	}
	return count, nil
}

// tableFor maps an entity kind to its table name.
func tableFor(kind model.Kind) (string, error) {
	switch kind {
	case model.KindTransaction:
		return "transactions", nil
	case model.KindTag:
		return "tags", nil
	case model.KindGoal:
		return "goals", nil
	case model.KindFixedExpense:
		return "fixed_expenses", nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
}

// setSyncStatus writes the status field on any entity variant.
func setSyncStatus(e model.Entity, status model.SyncStatus) {
	switch v := e.(type) {
	case *model.Transaction:
		v.SyncStatus = status
	case *model.Tag:
		v.SyncStatus = status
	case *model.Goal:
		v.SyncStatus = status
	case *model.FixedExpense:
		v.SyncStatus = status
	}
}

// upsertEntityTx inserts or updates an entity row (ON CONFLICT by id).
func upsertEntityTx(ctx context.Context, q dbtx, e model.Entity) error {
	switch v := e.(type) {
	case *model.Transaction:
		_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (
			id, amount, currency, exchange_rate, type, description, source,
			occurred_at, owner_id, created_at, updated_at, sync_status, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			currency = excluded.currency,
			exchange_rate = excluded.exchange_rate,
			type = excluded.type,
			description = excluded.description,
			source = excluded.source,
			occurred_at = excluded.occurred_at,
			updated_at = excluded.updated_at,
			sync_status = excluded.sync_status,
			deleted_at = excluded.deleted_at
		`, transactionArgs(v)...)
		return err
	case *model.Tag:
		_, err := q.ExecContext(ctx, `
		INSERT INTO tags (id, name, color, owner_id, created_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			sync_status = excluded.sync_status
		`, tagArgs(v)...)
		return err
	case *model.Goal:
		_, err := q.ExecContext(ctx, `
		INSERT INTO goals (
			id, title, description, total_cost, currency, duration_months,
			monthly_amount, deadline, start_date, saved_amount,
			owner_id, created_at, sync_status, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			total_cost = excluded.total_cost,
			currency = excluded.currency,
			duration_months = excluded.duration_months,
			monthly_amount = excluded.monthly_amount,
			deadline = excluded.deadline,
			start_date = excluded.start_date,
			saved_amount = excluded.saved_amount,
			sync_status = excluded.sync_status,
			deleted_at = excluded.deleted_at
		`, goalArgs(v)...)
		return err
	case *model.FixedExpense:
		_, err := q.ExecContext(ctx, `
		INSERT INTO fixed_expenses (
			id, amount, currency, description, due_day, is_active,
			owner_id, created_at, sync_status, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			currency = excluded.currency,
			description = excluded.description,
			due_day = excluded.due_day,
			is_active = excluded.is_active,
			sync_status = excluded.sync_status,
			deleted_at = excluded.deleted_at
		`, fixedExpenseArgs(v)...)
		return err
	default:
		return fmt.Errorf("unsupported entity type %T", e)
	}
}

// insertEntityTx inserts an entity row, failing on a duplicate id.
// The bulk merge path checks existence first, so a conflict here means
// a concurrent writer and is surfaced as an error.
func insertEntityTx(ctx context.Context, q dbtx, e model.Entity) error {
	switch v := e.(type) {
	case *model.Transaction:
		_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (
			id, amount, currency, exchange_rate, type, description, source,
			occurred_at, owner_id, created_at, updated_at, sync_status, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, transactionArgs(v)...)
		return err
	case *model.Tag:
		_, err := q.ExecContext(ctx, `
		INSERT INTO tags (id, name, color, owner_id, created_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?)`, tagArgs(v)...)
		return err
	case *model.Goal:
		_, err := q.ExecContext(ctx, `
		INSERT INTO goals (
			id, title, description, total_cost, currency, duration_months,
			monthly_amount, deadline, start_date, saved_amount,
			owner_id, created_at, sync_status, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, goalArgs(v)...)
		return err
	case *model.FixedExpense:
		_, err := q.ExecContext(ctx, `
		INSERT INTO fixed_expenses (
			id, amount, currency, description, due_day, is_active,
			owner_id, created_at, sync_status, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, fixedExpenseArgs(v)...)
		return err
	default:
		return fmt.Errorf("unsupported entity type %T", e)
	}
}

// getEntityTx reads a single live (not soft-deleted) row by id.
func getEntityTx(ctx context.Context, q dbtx, kind model.Kind, id string) (model.Entity, error) {
	switch kind {
	case model.KindTransaction:
		row := q.QueryRowContext(ctx, `
		SELECT id, amount, currency, exchange_rate, type, description, source,
		       occurred_at, owner_id, created_at, updated_at, sync_status, deleted_at
		FROM transactions WHERE id = ? AND deleted_at IS NULL`, id)
		t, err := scanTransactionRow(row)
		return wrapNotFound(kind, id, t, err)
	case model.KindTag:
		row := q.QueryRowContext(ctx, `
		SELECT id, name, color, owner_id, created_at, sync_status
		FROM tags WHERE id = ?`, id)
		var t model.Tag
		var color sql.NullString
		var createdAt string
		err := row.Scan(&t.ID, &t.Name, &color, &t.OwnerID, &createdAt, &t.SyncStatus)
		if err != nil {
			return wrapNotFound(kind, id, nil, err)
		}
		t.Color = color.String
		t.CreatedAt = parseTime(createdAt)
		return &t, nil
	case model.KindGoal:
		row := q.QueryRowContext(ctx, `
		SELECT id, title, description, total_cost, currency, duration_months,
		       monthly_amount, deadline, start_date, saved_amount,
		       owner_id, created_at, sync_status, deleted_at
		FROM goals WHERE id = ? AND deleted_at IS NULL`, id)
		g, err := scanGoal(row)
		return wrapNotFound(kind, id, g, err)
	case model.KindFixedExpense:
		row := q.QueryRowContext(ctx, `
		SELECT id, amount, currency, description, due_day, is_active,
		       owner_id, created_at, sync_status, deleted_at
		FROM fixed_expenses WHERE id = ? AND deleted_at IS NULL`, id)
		f, err := scanFixedExpense(row)
		return wrapNotFound(kind, id, f, err)
	default:
		return nil, storageErr("get", fmt.Errorf("unknown entity kind %q", kind))
	}
}

// wrapNotFound normalizes sql.ErrNoRows into ErrNotFound and boxes the
// typed result as an Entity.
func wrapNotFound(kind model.Kind, id string, e model.Entity, err error) (model.Entity, error) {
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("get %s", kind), err)
	}
	return e, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func transactionArgs(t *model.Transaction) []interface{} {
	var rate sql.NullString
	if t.ExchangeRate != nil {
		rate = sql.NullString{String: t.ExchangeRate.String(), Valid: true}
	}
	return []interface{}{
		t.ID, t.Amount.String(), t.Currency, rate, string(t.Type),
		t.Description, t.Source, formatTime(t.OccurredAt), t.OwnerID,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		string(t.SyncStatus), timeToNullString(t.DeletedAt),
	}
}

func tagArgs(t *model.Tag) []interface{} {
	return []interface{}{
		t.ID, t.Name, t.Color, t.OwnerID, formatTime(t.CreatedAt), string(t.SyncStatus),
	}
}

func goalArgs(g *model.Goal) []interface{} {
	return []interface{}{
		g.ID, g.Title, g.Description, g.TotalCost.String(), g.Currency,
		g.DurationMonths, g.MonthlyAmount.String(), formatTime(g.Deadline),
		formatTime(g.StartDate), g.SavedAmount.String(), g.OwnerID,
		formatTime(g.CreatedAt), string(g.SyncStatus), timeToNullString(g.DeletedAt),
	}
}

func fixedExpenseArgs(f *model.FixedExpense) []interface{} {
	return []interface{}{
		f.ID, f.Amount.String(), f.Currency, f.Description, f.DueDay,
		boolToInt(f.IsActive), f.OwnerID, formatTime(f.CreatedAt),
		string(f.SyncStatus), timeToNullString(f.DeletedAt),
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanTransactionRow(sc scanner) (*model.Transaction, error) {
	var t model.Transaction
	var amount string
	var rate, description, source, deletedAt sql.NullString
	var occurredAt, createdAt, updatedAt string

	err := sc.Scan(
		&t.ID, &amount, &t.Currency, &rate, &t.Type, &description, &source,
		&occurredAt, &t.OwnerID, &createdAt, &updatedAt, &t.SyncStatus, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	if rate.Valid {
		r, err := decimal.NewFromString(rate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse exchange rate %q: %w", rate.String, err)
		}
		t.ExchangeRate = &r
	}
	t.Description = description.String
	t.Source = source.String
	t.OccurredAt = parseTime(occurredAt)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	t.DeletedAt = nullStringToTime(deletedAt)
	return &t, nil
}

func scanTransactions(rows *sql.Rows) ([]*model.Transaction, error) {
	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, storageErr("scan transaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list transactions", err)
	}
	return out, nil
}

func scanGoal(sc scanner) (*model.Goal, error) {
	var g model.Goal
	var description, deletedAt sql.NullString
	var totalCost, monthlyAmount, savedAmount string
	var deadline, startDate, createdAt string

	err := sc.Scan(
		&g.ID, &g.Title, &description, &totalCost, &g.Currency, &g.DurationMonths,
		&monthlyAmount, &deadline, &startDate, &savedAmount,
		&g.OwnerID, &createdAt, &g.SyncStatus, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if g.TotalCost, err = decimal.NewFromString(totalCost); err != nil {
		return nil, fmt.Errorf("failed to parse total cost %q: %w", totalCost, err)
	}
	if g.MonthlyAmount, err = decimal.NewFromString(monthlyAmount); err != nil {
		return nil, fmt.Errorf("failed to parse monthly amount %q: %w", monthlyAmount, err)
	}
	if g.SavedAmount, err = decimal.NewFromString(savedAmount); err != nil {
		return nil, fmt.Errorf("failed to parse saved amount %q: %w", savedAmount, err)
	}
	g.Description = description.String
	g.Deadline = parseTime(deadline)
	g.StartDate = parseTime(startDate)
	g.CreatedAt = parseTime(createdAt)
	g.DeletedAt = nullStringToTime(deletedAt)
	return &g, nil
}

func scanFixedExpense(sc scanner) (*model.FixedExpense, error) {
	var f model.FixedExpense
	var amount string
	var description, deletedAt sql.NullString
	var isActive int
	var createdAt string

	err := sc.Scan(
		&f.ID, &amount, &f.Currency, &description, &f.DueDay, &isActive,
		&f.OwnerID, &createdAt, &f.SyncStatus, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if f.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	f.Description = description.String
	f.IsActive = isActive != 0
	f.CreatedAt = parseTime(createdAt)
	f.DeletedAt = nullStringToTime(deletedAt)
	return &f, nil
}
