package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avasilenko/pocketledger/internal/model"
)

const testOwner = "user-1"

// newTestStore opens a fresh database with the schema applied.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return st
}

func testTransaction(id string) *model.Transaction {
	now := time.Now().UTC()
	return &model.Transaction{
		ID:          id,
		Amount:      decimal.NewFromFloat(42.50),
		Currency:    "USD",
		Type:        model.TypeExpense,
		Description: "coffee",
		OccurredAt:  now,
		OwnerID:     testOwner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testGoal(id string) *model.Goal {
	now := time.Now().UTC()
	return &model.Goal{
		ID:             id,
		Title:          "vacation",
		TotalCost:      decimal.NewFromInt(1200),
		Currency:       "EUR",
		DurationMonths: 12,
		MonthlyAmount:  decimal.NewFromInt(100),
		Deadline:       now.AddDate(1, 0, 0),
		StartDate:      now,
		SavedAmount:    decimal.Zero,
		OwnerID:        testOwner,
		CreatedAt:      now,
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.InitSchema(ctx); err != nil {
		t.Fatalf("First InitSchema() failed: %v", err)
	}
	if err := st.InitSchema(ctx); err != nil {
		t.Errorf("Second InitSchema() failed: %v", err)
	}
}

func TestInitSchema_CreatesTables(t *testing.T) {
	st := newTestStore(t)

	tables := []string{"transactions", "tags", "goals", "fixed_expenses", "pending_operations", "sync_metadata"}
	for _, table := range tables {
		var count int
		err := st.conn.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}
}

func TestUpsert_NewWritesRowAndQueuesCreate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	saved, err := st.Upsert(ctx, testTransaction("tx-1"), true)
	if err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	got, err := st.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() failed: %v", err)
	}
	if got.SyncStatus != model.StatusPending {
		t.Errorf("sync status = %q, want %q", got.SyncStatus, model.StatusPending)
	}
	if saved.EntityID() != "tx-1" {
		t.Errorf("saved id = %q, want tx-1", saved.EntityID())
	}

	ops, err := st.ListPendingOps(ctx)
	if err != nil {
		t.Fatalf("ListPendingOps() failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("pending ops = %d, want 1", len(ops))
	}
	if ops[0].Operation != model.OpCreate {
		t.Errorf("operation = %q, want CREATE", ops[0].Operation)
	}
	if ops[0].EntityID != "tx-1" {
		t.Errorf("entity id = %q, want tx-1", ops[0].EntityID)
	}
}

func TestUpsert_UpdateQueuesUpdate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Upsert(ctx, testTransaction("tx-1"), true); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	edited := testTransaction("tx-1")
	edited.Description = "lunch"
	if _, err := st.Upsert(ctx, edited, false); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := st.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() failed: %v", err)
	}
	if got.Description != "lunch" {
		t.Errorf("description = %q, want lunch", got.Description)
	}

	ops, _ := st.ListPendingOps(ctx)
	if len(ops) != 2 {
		t.Fatalf("pending ops = %d, want 2", len(ops))
	}
	if ops[1].Operation != model.OpUpdate {
		t.Errorf("second operation = %q, want UPDATE", ops[1].Operation)
	}
}

func TestUpsert_InvalidEntityLeavesNothingBehind(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	bad := testTransaction("tx-1")
	bad.Currency = "DOLLARS"
	if _, err := st.Upsert(ctx, bad, true); err == nil {
		t.Fatal("Upsert() accepted invalid currency")
	}

	if _, err := st.GetTransaction(ctx, "tx-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	count, _ := st.PendingCount(ctx)
	if count != 0 {
		t.Errorf("pending ops = %d, want 0 after rejected write", count)
	}
}

func TestPendingOps_FIFOOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ids := []string{"tx-a", "tx-b", "tx-c"}
	for _, id := range ids {
		if _, err := st.Upsert(ctx, testTransaction(id), true); err != nil {
			t.Fatalf("Upsert(%s) failed: %v", id, err)
		}
	}

	ops, err := st.ListPendingOps(ctx)
	if err != nil {
		t.Fatalf("ListPendingOps() failed: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("pending ops = %d, want 3", len(ops))
	}
	for i, op := range ops {
		if op.EntityID != ids[i] {
			t.Errorf("ops[%d] entity = %q, want %q", i, op.EntityID, ids[i])
		}
	}
}

func TestPendingOps_PayloadRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	orig := testTransaction("tx-1")
	if _, err := st.Upsert(ctx, orig, true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	ops, _ := st.ListPendingOps(ctx)
	if len(ops) != 1 {
		t.Fatalf("pending ops = %d, want 1", len(ops))
	}
	entity, err := ops[0].Payload.Entity()
	if err != nil {
		t.Fatalf("Payload.Entity() failed: %v", err)
	}
	tx, ok := entity.(*model.Transaction)
	if !ok {
		t.Fatalf("payload entity is %T, want *model.Transaction", entity)
	}
	if !tx.Amount.Equal(orig.Amount) {
		t.Errorf("amount = %s, want %s", tx.Amount, orig.Amount)
	}
	if tx.Description != orig.Description {
		t.Errorf("description = %q, want %q", tx.Description, orig.Description)
	}
}

func TestRemoveOp_Idempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Upsert(ctx, testTransaction("tx-1"), true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	ops, _ := st.ListPendingOps(ctx)

	if err := st.RemoveOp(ctx, ops[0].ID); err != nil {
		t.Fatalf("RemoveOp() failed: %v", err)
	}
	if err := st.RemoveOp(ctx, ops[0].ID); err != nil {
		t.Errorf("second RemoveOp() failed: %v", err)
	}
	count, _ := st.PendingCount(ctx)
	if count != 0 {
		t.Errorf("pending ops = %d, want 0", count)
	}
}

func TestIncrementAttempts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Upsert(ctx, testTransaction("tx-1"), true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	ops, _ := st.ListPendingOps(ctx)

	for want := 1; want <= 3; want++ {
		got, err := st.IncrementAttempts(ctx, ops[0].ID)
		if err != nil {
			t.Fatalf("IncrementAttempts() failed: %v", err)
		}
		if got != want {
			t.Errorf("attempts = %d, want %d", got, want)
		}
	}

	if _, err := st.IncrementAttempts(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing op, got %v", err)
	}
}

func TestSoftDelete(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Upsert(ctx, testTransaction("tx-1"), true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	if err := st.SoftDelete(ctx, model.KindTransaction, "tx-1"); err != nil {
		t.Fatalf("SoftDelete() failed: %v", err)
	}

	// Deleted row drops out of reads.
	if _, err := st.GetTransaction(ctx, "tx-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	list, _ := st.ListTransactions(ctx, testOwner, TransactionFilter{})
	if len(list) != 0 {
		t.Errorf("list returned %d rows, want 0", len(list))
	}

	// CREATE then DELETE queued.
	ops, _ := st.ListPendingOps(ctx)
	if len(ops) != 2 {
		t.Fatalf("pending ops = %d, want 2", len(ops))
	}
	if ops[1].Operation != model.OpDelete {
		t.Errorf("second op = %q, want DELETE", ops[1].Operation)
	}

	// Deleting again reports not found.
	if err := st.SoftDelete(ctx, model.KindTransaction, "tx-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestSoftDelete_TagRejected(t *testing.T) {
	st := newTestStore(t)

	err := st.SoftDelete(context.Background(), model.KindTag, "tag-1")
	if err == nil {
		t.Fatal("SoftDelete() accepted a tag")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("tag rejection should not be ErrNotFound: %v", err)
	}
}

func TestMarkSynced(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Upsert(ctx, testTransaction("tx-1"), true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := st.MarkSynced(ctx, model.KindTransaction, "tx-1"); err != nil {
		t.Fatalf("MarkSynced() failed: %v", err)
	}

	got, _ := st.GetTransaction(ctx, "tx-1")
	if got.SyncStatus != model.StatusSynced {
		t.Errorf("sync status = %q, want synced", got.SyncStatus)
	}
}

func TestBulkMerge_InsertsOnlyMissing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Local pending edit that must survive the merge untouched.
	local := testTransaction("tx-1")
	local.Description = "local edit"
	if _, err := st.Upsert(ctx, local, true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	remoteSame := testTransaction("tx-1")
	remoteSame.Description = "remote version"
	remoteNew := testTransaction("tx-2")

	inserted, err := st.BulkMerge(ctx, model.KindTransaction,
		[]model.Entity{remoteSame, remoteNew}, testOwner)
	if err != nil {
		t.Fatalf("BulkMerge() failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}

	got, _ := st.GetTransaction(ctx, "tx-1")
	if got.Description != "local edit" {
		t.Errorf("local row clobbered: description = %q", got.Description)
	}
	if got.SyncStatus != model.StatusPending {
		t.Errorf("local row status = %q, want pending", got.SyncStatus)
	}

	added, _ := st.GetTransaction(ctx, "tx-2")
	if added.SyncStatus != model.StatusSynced {
		t.Errorf("merged row status = %q, want synced", added.SyncStatus)
	}
}

func TestBulkMerge_Idempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	records := []model.Entity{testTransaction("tx-1"), testTransaction("tx-2")}

	first, err := st.BulkMerge(ctx, model.KindTransaction, records, testOwner)
	if err != nil {
		t.Fatalf("first BulkMerge() failed: %v", err)
	}
	if first != 2 {
		t.Errorf("first merge inserted = %d, want 2", first)
	}

	second, err := st.BulkMerge(ctx, model.KindTransaction, records, testOwner)
	if err != nil {
		t.Fatalf("second BulkMerge() failed: %v", err)
	}
	if second != 0 {
		t.Errorf("second merge inserted = %d, want 0", second)
	}
}

func TestBulkMerge_SkipsForeignOwner(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	foreign := testTransaction("tx-1")
	foreign.OwnerID = "someone-else"

	inserted, err := st.BulkMerge(ctx, model.KindTransaction, []model.Entity{foreign}, testOwner)
	if err != nil {
		t.Fatalf("BulkMerge() failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("inserted = %d, want 0", inserted)
	}
}

func TestBulkMerge_DoesNotResurrectDeleted(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Upsert(ctx, testTransaction("tx-1"), true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := st.SoftDelete(ctx, model.KindTransaction, "tx-1"); err != nil {
		t.Fatalf("SoftDelete() failed: %v", err)
	}

	inserted, err := st.BulkMerge(ctx, model.KindTransaction,
		[]model.Entity{testTransaction("tx-1")}, testOwner)
	if err != nil {
		t.Fatalf("BulkMerge() failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("inserted = %d, want 0 (deleted row must not come back)", inserted)
	}
	if _, err := st.GetTransaction(ctx, "tx-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted row resurfaced: %v", err)
	}
}

func TestBulkMerge_KindMismatch(t *testing.T) {
	st := newTestStore(t)

	_, err := st.BulkMerge(context.Background(), model.KindGoal,
		[]model.Entity{testTransaction("tx-1")}, testOwner)
	if err == nil {
		t.Fatal("BulkMerge() accepted a transaction as a goal")
	}
}

func TestListTransactions_FilterAndOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, typ := range []model.TransactionType{model.TypeExpense, model.TypeIncome, model.TypeExpense} {
		tx := testTransaction(fmt.Sprintf("tx-%d", i))
		tx.Type = typ
		tx.OccurredAt = base.Add(time.Duration(i) * time.Hour)
		if _, err := st.Upsert(ctx, tx, true); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
	}

	all, err := st.ListTransactions(ctx, testOwner, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if !all[0].OccurredAt.After(all[1].OccurredAt) {
		t.Error("results not ordered newest first")
	}

	expenses, _ := st.ListTransactions(ctx, testOwner, TransactionFilter{Type: model.TypeExpense})
	if len(expenses) != 2 {
		t.Errorf("expense filter returned %d, want 2", len(expenses))
	}

	limited, _ := st.ListTransactions(ctx, testOwner, TransactionFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d rows", len(limited))
	}
}

func TestGoal_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	orig := testGoal("goal-1")
	if _, err := st.Upsert(ctx, orig, true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	got, err := st.GetGoal(ctx, "goal-1")
	if err != nil {
		t.Fatalf("GetGoal() failed: %v", err)
	}
	if got.Title != orig.Title {
		t.Errorf("title = %q, want %q", got.Title, orig.Title)
	}
	if !got.TotalCost.Equal(orig.TotalCost) {
		t.Errorf("total cost = %s, want %s", got.TotalCost, orig.TotalCost)
	}
	if got.DurationMonths != orig.DurationMonths {
		t.Errorf("duration = %d, want %d", got.DurationMonths, orig.DurationMonths)
	}
}

func TestStuckCount(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Upsert(ctx, testTransaction("tx-1"), true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	// Queued op still present: the pending row is not stuck.
	stuck, err := st.StuckCount(ctx)
	if err != nil {
		t.Fatalf("StuckCount() failed: %v", err)
	}
	if stuck != 0 {
		t.Errorf("stuck = %d, want 0 while op is queued", stuck)
	}

	// Simulate eviction: drop the op without marking the row synced.
	ops, _ := st.ListPendingOps(ctx)
	if err := st.RemoveOp(ctx, ops[0].ID); err != nil {
		t.Fatalf("RemoveOp() failed: %v", err)
	}

	stuck, err = st.StuckCount(ctx)
	if err != nil {
		t.Fatalf("StuckCount() failed: %v", err)
	}
	if stuck != 1 {
		t.Errorf("stuck = %d, want 1 after eviction", stuck)
	}
}

func TestLastSyncAt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	got, err := st.LastSyncAt(ctx)
	if err != nil {
		t.Fatalf("LastSyncAt() failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil before first sync, got %v", got)
	}

	ts := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if err := st.SetLastSyncAt(ctx, ts); err != nil {
		t.Fatalf("SetLastSyncAt() failed: %v", err)
	}
	got, _ = st.LastSyncAt(ctx)
	if got == nil || !got.Equal(ts) {
		t.Errorf("LastSyncAt = %v, want %v", got, ts)
	}

	if err := st.ClearLastSyncAt(ctx); err != nil {
		t.Fatalf("ClearLastSyncAt() failed: %v", err)
	}
	got, _ = st.LastSyncAt(ctx)
	if got != nil {
		t.Errorf("expected nil after clear, got %v", got)
	}
}

func TestClearAll(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Upsert(ctx, testTransaction("tx-1"), true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if _, err := st.Upsert(ctx, testGoal("goal-1"), true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := st.SetLastSyncAt(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("SetLastSyncAt() failed: %v", err)
	}

	if err := st.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() failed: %v", err)
	}

	if _, err := st.GetTransaction(ctx, "tx-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("transaction survived ClearAll: %v", err)
	}
	count, _ := st.PendingCount(ctx)
	if count != 0 {
		t.Errorf("pending ops = %d, want 0", count)
	}
	last, _ := st.LastSyncAt(ctx)
	if last != nil {
		t.Errorf("last sync survived ClearAll: %v", last)
	}
}

func TestDurability_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := st.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	if _, err := st.Upsert(ctx, testTransaction("tx-1"), true); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st2.Close()

	got, err := st2.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() after reopen failed: %v", err)
	}
	if got.SyncStatus != model.StatusPending {
		t.Errorf("sync status = %q, want pending", got.SyncStatus)
	}
	ops, _ := st2.ListPendingOps(ctx)
	if len(ops) != 1 {
		t.Errorf("pending ops after reopen = %d, want 1", len(ops))
	}
}
