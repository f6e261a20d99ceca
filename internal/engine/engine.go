// Package engine drives the reconciliation cycle between the local
// store and the remote API.
//
// A cycle is strictly sequential: first the upload phase drains the
// pending-operation log in FIFO order, then the download phase pulls the
// remote collections and merges them into the local store. At most one
// cycle is in flight at any time; a concurrent Sync call is rejected
// with a reason, never queued or blocked.
//
// Conflict policy: local pending edits always win over remote state
// until they themselves upload and flip to synced. The download phase
// never overwrites an existing local row, so nothing the device wrote
// while offline can be clobbered by a full pull. The policy is
// asymmetric, not timestamp-based last-write-wins: timestamps are never
// compared on merge.
package engine

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/avasilenko/pocketledger/internal/model"
	"github.com/avasilenko/pocketledger/internal/status"
	"github.com/avasilenko/pocketledger/internal/store"
)

// Rejection reasons returned by Sync.
const (
	ReasonOffline        = "offline"
	ReasonAlreadySyncing = "already-syncing"
)

// Sentinel errors for callers that prefer errors.Is over inspecting
// Result.Reason.
var (
	// ErrOffline is returned when a sync is requested while the device
	// has no connectivity.
	ErrOffline = errors.New("device is offline")

	// ErrSyncInProgress is returned when a sync is requested while a
	// cycle is already in flight.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// RemoteAPI is the slice of the remote client the engine needs.
// Satisfied by *remote.Client.
type RemoteAPI interface {
	Create(ctx context.Context, e model.Entity) error
	Update(ctx context.Context, e model.Entity) error
	Delete(ctx context.Context, kind model.Kind, id string) error
	FetchTransactions(ctx context.Context) ([]*model.Transaction, error)
	FetchTags(ctx context.Context) ([]*model.Tag, error)
	FetchGoals(ctx context.Context) ([]*model.Goal, error)
}

// Result reports the outcome of one sync cycle.
type Result struct {
	// Success is true when the whole cycle (upload + download) ran to
	// completion with no phase-level failure.
	Success bool `json:"success"`
	// Reason explains a rejected cycle ("offline", "already-syncing").
	Reason string `json:"reason,omitempty"`
	// Uploaded counts operations acknowledged by the remote API.
	Uploaded int `json:"uploaded"`
	// Failed counts operations that failed this cycle and stay queued.
	Failed int `json:"failed"`
	// Evicted counts operations dropped after reaching the attempt cap.
	Evicted int `json:"evicted"`
	// Merged counts rows inserted by the download phase.
	Merged int `json:"merged"`
	// Err holds the phase-level failure when Success is false and the
	// cycle was not rejected outright.
	Err error `json:"-"`
}

// AsError maps a rejected or failed Result to an error, nil on success.
func (r Result) AsError() error {
	switch {
	case r.Success:
		return nil
	case r.Reason == ReasonOffline:
		return ErrOffline
	case r.Reason == ReasonAlreadySyncing:
		return ErrSyncInProgress
	default:
		return r.Err
	}
}

// Config holds engine configuration.
type Config struct {
	// OwnerID is the id of the user this device session belongs to.
	// Downloaded records owned by anyone else are discarded on merge.
	OwnerID string

	// MaxAttempts is how many failed uploads an operation survives
	// before it is evicted from the queue (default: 3).
	MaxAttempts int

	// Logger for engine activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Logger:      log.New(os.Stderr, "[engine] ", log.LstdFlags),
	}
}

// Engine owns the reconciliation state machine.
type Engine struct {
	store       *store.Store
	remote      RemoteAPI
	broadcaster *status.Broadcaster
	logger      *log.Logger
	owner       string
	maxAttempts int

	mu      sync.Mutex
	online  bool
	syncing bool
}

// New creates an engine. The store must be opened and have its schema
// initialized. If cfg is nil, defaults are used.
func New(st *store.Store, api RemoteAPI, bc *status.Broadcaster, cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	return &Engine{
		store:       st,
		remote:      api,
		broadcaster: bc,
		logger:      cfg.Logger,
		owner:       cfg.OwnerID,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Status returns the engine's two state flags.
func (e *Engine) Status() (online, syncing bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online, e.syncing
}

// SetOnline records a connectivity transition reported by the watcher
// and notifies subscribers when the state actually changed.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.mu.Lock()
	changed := e.online != online
	e.online = online
	e.mu.Unlock()

	if changed {
		e.publish(ctx)
	}
}

// PendingCount returns the length of the pending-operation log.
func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	return e.store.PendingCount(ctx)
}

// Sync runs one reconciliation cycle: upload all pending operations in
// FIFO order, then pull and merge the remote collections.
//
// Sync returns immediately with a reason when the device is offline or
// a cycle is already in flight. The syncing flag is always cleared and
// subscribers are always notified, whether the cycle succeeded or not.
func (e *Engine) Sync(ctx context.Context) Result {
	e.mu.Lock()
	if !e.online {
		e.mu.Unlock()
		return Result{Reason: ReasonOffline}
	}
	if e.syncing {
		e.mu.Unlock()
		return Result{Reason: ReasonAlreadySyncing}
	}
	e.syncing = true
	e.mu.Unlock()

	e.publish(ctx)

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
		// The request ctx may already be cancelled by the time the cycle
		// ends; the final snapshot still has to carry real counts.
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pubCancel()
		e.publish(pubCtx)
	}()

	var res Result
	start := time.Now()

	e.uploadPhase(ctx, &res)
	if res.Err != nil {
		// Cancelled mid-upload. Skip the download phase rather than
		// report a half-run cycle as complete.
		e.logger.Printf("Sync aborted in upload phase: %v", res.Err)
		return res
	}

	if err := e.downloadPhase(ctx, &res); err != nil {
		res.Err = err
		e.logger.Printf("Sync failed in download phase: %v", err)
		return res
	}

	if err := e.store.SetLastSyncAt(ctx, time.Now().UTC()); err != nil {
		res.Err = err
		e.logger.Printf("Sync failed to record completion: %v", err)
		return res
	}

	res.Success = true
	e.logger.Printf("Sync complete in %v: uploaded=%d failed=%d evicted=%d merged=%d",
		time.Since(start).Round(time.Millisecond),
		res.Uploaded, res.Failed, res.Evicted, res.Merged)
	return res
}

// ForceFullSync clears the last-sync record and runs a cycle, forcing
// the download phase to behave like a first-ever full pull.
func (e *Engine) ForceFullSync(ctx context.Context) Result {
	if err := e.store.ClearLastSyncAt(ctx); err != nil {
		return Result{Err: err}
	}
	return e.Sync(ctx)
}

// uploadPhase drains the queue in FIFO order. Individual item failures
// are isolated: the loop never aborts early because one upload failed.
func (e *Engine) uploadPhase(ctx context.Context, res *Result) {
	ops, err := e.store.ListPendingOps(ctx)
	if err != nil {
		// Without the queue there is nothing to upload; the download
		// phase can still run.
		e.logger.Printf("WARNING: failed to read pending operations: %v", err)
		return
	}

	for _, op := range ops {
		if ctx.Err() != nil {
			// Process shutdown. Leave remaining items queued untouched
			// rather than burning an attempt on each.
			res.Err = ctx.Err()
			return
		}

		if err := e.dispatch(ctx, op); err != nil {
			e.handleUploadFailure(ctx, op, err, res)
			continue
		}

		if op.Operation != model.OpDelete {
			if err := e.store.MarkSynced(ctx, op.Kind, op.EntityID); err != nil {
				e.logger.Printf("WARNING: failed to mark %s %s synced: %v", op.Kind, op.EntityID, err)
			}
		}
		if err := e.store.RemoveOp(ctx, op.ID); err != nil {
			e.logger.Printf("WARNING: failed to dequeue operation %d: %v", op.ID, err)
		}
		res.Uploaded++
	}
}

// dispatch replays a single queued mutation against the remote API
// using the entity snapshot captured at enqueue time.
func (e *Engine) dispatch(ctx context.Context, op *model.PendingOperation) error {
	switch op.Operation {
	case model.OpDelete:
		return e.remote.Delete(ctx, op.Kind, op.EntityID)
	case model.OpCreate:
		ent, err := op.Payload.Entity()
		if err != nil {
			return err
		}
		return e.remote.Create(ctx, ent)
	case model.OpUpdate:
		ent, err := op.Payload.Entity()
		if err != nil {
			return err
		}
		return e.remote.Update(ctx, ent)
	default:
		return errors.New("unknown operation " + string(op.Operation))
	}
}

// handleUploadFailure bumps the attempt counter and evicts the
// operation once it reaches the cap. The entity row stays pending,
// visibly stuck, surfaced via the status stream rather than silently
// reconciled.
func (e *Engine) handleUploadFailure(ctx context.Context, op *model.PendingOperation, cause error, res *Result) {
	e.logger.Printf("WARNING: upload of %s %s %s failed: %v", op.Operation, op.Kind, op.EntityID, cause)

	attempts, err := e.store.IncrementAttempts(ctx, op.ID)
	if err != nil {
		e.logger.Printf("WARNING: failed to record attempt for operation %d: %v", op.ID, err)
		res.Failed++
		return
	}

	if attempts >= e.maxAttempts {
		e.logger.Printf("WARNING: giving up on %s %s %s after %d attempts; entity remains pending",
			op.Operation, op.Kind, op.EntityID, attempts)
		if err := e.store.RemoveOp(ctx, op.ID); err != nil {
			e.logger.Printf("WARNING: failed to evict operation %d: %v", op.ID, err)
			res.Failed++
			return
		}
		res.Evicted++
		return
	}
	res.Failed++
}

// downloadPhase pulls the full remote collections and merges them.
// The first failure aborts the remainder of the phase; state already
// uploaded this cycle is unaffected.
//
// Fixed expenses are upload-only: the remote API treats them as
// device-managed, so they are not part of the bulk pull.
func (e *Engine) downloadPhase(ctx context.Context, res *Result) error {
	txs, err := e.remote.FetchTransactions(ctx)
	if err != nil {
		return err
	}
	n, err := e.store.BulkMerge(ctx, model.KindTransaction, entityList(txs), e.owner)
	res.Merged += n
	if err != nil {
		return err
	}

	tags, err := e.remote.FetchTags(ctx)
	if err != nil {
		return err
	}
	n, err = e.store.BulkMerge(ctx, model.KindTag, entityList(tags), e.owner)
	res.Merged += n
	if err != nil {
		return err
	}

	goals, err := e.remote.FetchGoals(ctx)
	if err != nil {
		return err
	}
	n, err = e.store.BulkMerge(ctx, model.KindGoal, entityList(goals), e.owner)
	res.Merged += n
	if err != nil {
		return err
	}

	return nil
}

// entityList boxes a typed slice as []model.Entity.
func entityList[E model.Entity](records []E) []model.Entity {
	out := make([]model.Entity, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}

// CurrentStatus assembles a full status snapshot for subscribers.
func (e *Engine) CurrentStatus(ctx context.Context) status.Status {
	e.mu.Lock()
	s := status.Status{Online: e.online, Syncing: e.syncing}
	e.mu.Unlock()

	if count, err := e.store.PendingCount(ctx); err == nil {
		s.PendingCount = count
	}
	if stuck, err := e.store.StuckCount(ctx); err == nil {
		s.StuckCount = stuck
	}
	if last, err := e.store.LastSyncAt(ctx); err == nil {
		s.LastSyncAt = last
	}
	return s
}

// publish pushes the current status to the broadcaster.
func (e *Engine) publish(ctx context.Context) {
	if e.broadcaster == nil {
		return
	}
	e.broadcaster.Publish(e.CurrentStatus(ctx))
}
