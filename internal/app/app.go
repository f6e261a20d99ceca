// Package app exposes the thin UI-facing surface over the store and
// the engine: local reads and writes that never wait on the network,
// plus sync triggers and the status subscription.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avasilenko/pocketledger/internal/engine"
	"github.com/avasilenko/pocketledger/internal/model"
	"github.com/avasilenko/pocketledger/internal/status"
	"github.com/avasilenko/pocketledger/internal/store"
)

// App wires the store, engine and broadcaster together for UI
// consumers. Local writes are durable before App methods return; upload
// happens later, on the engine's schedule.
type App struct {
	store       *store.Store
	engine      *engine.Engine
	broadcaster *status.Broadcaster
	owner       string
	logger      *log.Logger
}

// New creates the hook surface for one user session.
func New(st *store.Store, eng *engine.Engine, bc *status.Broadcaster, ownerID string, logger *log.Logger) *App {
	if logger == nil {
		logger = log.New(os.Stderr, "[app] ", log.LstdFlags)
	}
	return &App{
		store:       st,
		engine:      eng,
		broadcaster: bc,
		owner:       ownerID,
		logger:      logger,
	}
}

// Save writes an entity locally, marks it pending and queues its
// upload. New entities without an id get a generated one; ownership and
// timestamps are stamped here so UI callers only fill business fields.
//
// The write is durable when Save returns. If the device is online, a
// sync is kicked off in the background; Save never waits for it.
func (a *App) Save(ctx context.Context, e model.Entity, isNew bool) (model.Entity, error) {
	a.stamp(e, isNew)

	stored, err := a.store.Upsert(ctx, e, isNew)
	if err != nil {
		return nil, err
	}

	a.kickSync()
	return stored, nil
}

// Remove soft-deletes an entity and queues the deletion for upload.
func (a *App) Remove(ctx context.Context, kind model.Kind, id string) error {
	if err := a.store.SoftDelete(ctx, kind, id); err != nil {
		return err
	}
	a.kickSync()
	return nil
}

// GetTransactions returns the session's transactions.
func (a *App) GetTransactions(ctx context.Context, filter store.TransactionFilter) ([]*model.Transaction, error) {
	return a.store.ListTransactions(ctx, a.owner, filter)
}

// GetTags returns the session's tags.
func (a *App) GetTags(ctx context.Context) ([]*model.Tag, error) {
	return a.store.ListTags(ctx, a.owner)
}

// GetGoals returns the session's goals.
func (a *App) GetGoals(ctx context.Context) ([]*model.Goal, error) {
	return a.store.ListGoals(ctx, a.owner)
}

// GetFixedExpenses returns the session's fixed expenses.
func (a *App) GetFixedExpenses(ctx context.Context) ([]*model.FixedExpense, error) {
	return a.store.ListFixedExpenses(ctx, a.owner)
}

// Refresh runs one sync cycle and reports its result.
func (a *App) Refresh(ctx context.Context) engine.Result {
	return a.engine.Sync(ctx)
}

// ManualSync clears the last-sync record and runs a full cycle, for the
// user-facing "sync now" action.
func (a *App) ManualSync(ctx context.Context) engine.Result {
	return a.engine.ForceFullSync(ctx)
}

// PendingCount returns the number of queued uploads.
func (a *App) PendingCount(ctx context.Context) (int, error) {
	return a.engine.PendingCount(ctx)
}

// CurrentStatus returns a full status snapshot.
func (a *App) CurrentStatus(ctx context.Context) status.Status {
	return a.engine.CurrentStatus(ctx)
}

// Subscribe registers a status subscriber; the returned cancel func
// ends the subscription.
func (a *App) Subscribe() (<-chan status.Status, func()) {
	return a.broadcaster.Subscribe()
}

// SignOut wipes all local data, including the queue and sync metadata.
func (a *App) SignOut(ctx context.Context) error {
	return a.store.ClearAll(ctx)
}

// stamp fills identity, ownership and bookkeeping fields.
func (a *App) stamp(e model.Entity, isNew bool) {
	now := time.Now().UTC()
	switch v := e.(type) {
	case *model.Transaction:
		if isNew && v.ID == "" {
			v.ID = uuid.NewString()
		}
		v.OwnerID = a.owner
		if isNew {
			v.CreatedAt = now
		}
		v.UpdatedAt = now
		if v.OccurredAt.IsZero() {
			v.OccurredAt = now
		}
	case *model.Tag:
		if isNew && v.ID == "" {
			v.ID = uuid.NewString()
		}
		v.OwnerID = a.owner
		if isNew {
			v.CreatedAt = now
		}
	case *model.Goal:
		if isNew && v.ID == "" {
			v.ID = uuid.NewString()
		}
		v.OwnerID = a.owner
		if isNew {
			v.CreatedAt = now
		}
	case *model.FixedExpense:
		if isNew && v.ID == "" {
			v.ID = uuid.NewString()
		}
		v.OwnerID = a.owner
		if isNew {
			v.CreatedAt = now
		}
	}
}

// kickSync starts a background sync when online. The engine rejects the
// call instantly when offline or already syncing, so this can never
// pile up cycles.
func (a *App) kickSync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		res := a.engine.Sync(ctx)
		if res.Err != nil {
			a.logger.Printf("Background sync failed: %v", res.Err)
		}
	}()
}

// KindOf resolves a user-supplied kind name, accepting the collection
// spelling and its singular as well ("fixedExpense", "fixed-expenses"
// and "fixed-expense" all work).
func KindOf(name string) (model.Kind, error) {
	for _, k := range model.Kinds {
		col := k.Collection()
		if name == string(k) || name == col || name == strings.TrimSuffix(col, "s") {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", name)
}
