package app

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avasilenko/pocketledger/internal/engine"
	"github.com/avasilenko/pocketledger/internal/model"
	"github.com/avasilenko/pocketledger/internal/status"
	"github.com/avasilenko/pocketledger/internal/store"
)

const testOwner = "user-1"

// nullRemote satisfies engine.RemoteAPI; the app tests never go online,
// so nothing should ever reach it.
type nullRemote struct{}

func (nullRemote) Create(ctx context.Context, e model.Entity) error { return errors.New("offline") }
func (nullRemote) Update(ctx context.Context, e model.Entity) error { return errors.New("offline") }
func (nullRemote) Delete(ctx context.Context, kind model.Kind, id string) error {
	return errors.New("offline")
}
func (nullRemote) FetchTransactions(ctx context.Context) ([]*model.Transaction, error) {
	return nil, nil
}
func (nullRemote) FetchTags(ctx context.Context) ([]*model.Tag, error)   { return nil, nil }
func (nullRemote) FetchGoals(ctx context.Context) ([]*model.Goal, error) { return nil, nil }

func newTestApp(t *testing.T) (*App, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	bc := status.NewBroadcaster()
	t.Cleanup(bc.Close)
	logger := log.New(io.Discard, "", 0)
	eng := engine.New(st, nullRemote{}, bc, &engine.Config{OwnerID: testOwner, Logger: logger})
	return New(st, eng, bc, testOwner, logger), st
}

func TestSave_StampsNewEntity(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	saved, err := a.Save(ctx, &model.Transaction{
		Amount:   decimal.NewFromInt(20),
		Currency: "USD",
		Type:     model.TypeExpense,
	}, true)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	tx := saved.(*model.Transaction)
	if tx.ID == "" {
		t.Error("Save() did not assign an id")
	}
	if tx.OwnerID != testOwner {
		t.Errorf("owner = %q, want %q", tx.OwnerID, testOwner)
	}
	if tx.CreatedAt.IsZero() || tx.OccurredAt.IsZero() {
		t.Error("timestamps not stamped")
	}
	if tx.SyncStatus != model.StatusPending {
		t.Errorf("status = %q, want pending", tx.SyncStatus)
	}
}

func TestSave_KeepsCallerID(t *testing.T) {
	a, _ := newTestApp(t)

	saved, err := a.Save(context.Background(), &model.Tag{ID: "tag-custom", Name: "rent"}, true)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if saved.EntityID() != "tag-custom" {
		t.Errorf("id = %q, want tag-custom", saved.EntityID())
	}
}

func TestSave_DurableWhileOffline(t *testing.T) {
	a, st := newTestApp(t)
	ctx := context.Background()

	if _, err := a.Save(ctx, &model.Transaction{
		Amount: decimal.NewFromInt(7), Currency: "EUR", Type: model.TypeIncome,
	}, true); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// Give the background sync kick a moment; offline, it must not
	// touch the queue.
	time.Sleep(50 * time.Millisecond)

	count, err := st.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("pending = %d, want 1", count)
	}

	list, err := a.GetTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		t.Fatalf("GetTransactions() failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("transactions = %d, want 1", len(list))
	}
}

func TestRemove(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	saved, err := a.Save(ctx, &model.Goal{
		Title: "bike", TotalCost: decimal.NewFromInt(400), Currency: "USD",
		MonthlyAmount: decimal.NewFromInt(50),
	}, true)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if err := a.Remove(ctx, model.KindGoal, saved.EntityID()); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}

	goals, _ := a.GetGoals(ctx)
	if len(goals) != 0 {
		t.Errorf("goals = %d after remove, want 0", len(goals))
	}
}

func TestRefresh_OfflineRejected(t *testing.T) {
	a, _ := newTestApp(t)

	res := a.Refresh(context.Background())
	if res.Success {
		t.Error("Refresh() succeeded while offline")
	}
	if !errors.Is(res.AsError(), engine.ErrOffline) {
		t.Errorf("AsError() = %v, want ErrOffline", res.AsError())
	}
}

func TestSignOut_WipesEverything(t *testing.T) {
	a, st := newTestApp(t)
	ctx := context.Background()

	if _, err := a.Save(ctx, &model.Transaction{
		Amount: decimal.NewFromInt(1), Currency: "USD", Type: model.TypeExpense,
	}, true); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if err := a.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() failed: %v", err)
	}

	list, _ := a.GetTransactions(ctx, store.TransactionFilter{})
	if len(list) != 0 {
		t.Errorf("transactions survived SignOut: %d", len(list))
	}
	count, _ := st.PendingCount(ctx)
	if count != 0 {
		t.Errorf("queue survived SignOut: %d", count)
	}
}

func TestKindOf(t *testing.T) {
	cases := map[string]model.Kind{
		"transaction":    model.KindTransaction,
		"transactions":   model.KindTransaction,
		"tag":            model.KindTag,
		"goal":           model.KindGoal,
		"fixedExpense":   model.KindFixedExpense,
		"fixed-expense":  model.KindFixedExpense,
		"fixed-expenses": model.KindFixedExpense,
	}
	for name, want := range cases {
		got, err := KindOf(name)
		if err != nil {
			t.Errorf("KindOf(%q) failed: %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("KindOf(%q) = %q, want %q", name, got, want)
		}
	}

	if _, err := KindOf("budget"); err == nil {
		t.Error("KindOf() accepted an unknown name")
	}
}
