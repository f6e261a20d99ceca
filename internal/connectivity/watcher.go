// Package connectivity watches the platform connectivity signal and
// triggers sync cycles when the device comes back online.
//
// The watcher combines two inputs: a Probe that checks remote
// reachability at a fixed interval, and an optional offline-marker file
// that forces offline mode while it exists (airplane mode for the CLI,
// and a deterministic switch for tests). It also owns the periodic
// fallback timer that re-runs sync every few minutes while online.
package connectivity

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/avasilenko/pocketledger/internal/engine"
)

// Probe reports whether the remote API is currently reachable.
type Probe interface {
	Check(ctx context.Context) bool
}

// Pinger is the slice of the remote client the HTTP probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPProbe checks connectivity by pinging the remote API's health
// endpoint.
type HTTPProbe struct {
	Pinger Pinger
}

// Check implements Probe.
func (p *HTTPProbe) Check(ctx context.Context) bool {
	return p.Pinger.Ping(ctx) == nil
}

// Syncer is the slice of the engine the watcher drives.
// Satisfied by *engine.Engine.
type Syncer interface {
	SetOnline(ctx context.Context, online bool)
	Sync(ctx context.Context) engine.Result
}

// Config holds configuration for the watcher.
type Config struct {
	// ProbeInterval is how often connectivity is checked (default: 15s).
	ProbeInterval time.Duration

	// SyncInterval is the periodic fallback sync timer (default: 5m).
	// The tick is skipped while offline; an overlapping tick is made
	// harmless by the engine's single-flight guard.
	SyncInterval time.Duration

	// DebounceInterval is how long a regained connection must hold
	// before a sync is triggered, so a flapping link doesn't spawn a
	// cycle per blip (default: 2s).
	DebounceInterval time.Duration

	// OfflineMarker is an optional file path; while the file exists the
	// watcher reports offline regardless of the probe. Empty disables
	// the marker.
	OfflineMarker string

	// Logger for watcher activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ProbeInterval:    15 * time.Second,
		SyncInterval:     5 * time.Minute,
		DebounceInterval: 2 * time.Second,
		Logger:           log.New(os.Stderr, "[watcher] ", log.LstdFlags),
	}
}

// Watcher observes connectivity and drives the engine.
type Watcher struct {
	probe  Probe
	syncer Syncer
	config *Config

	fsw *fsnotify.Watcher // nil when no offline marker is configured

	mu            sync.Mutex
	online        bool // last effective state pushed to the engine
	markerPresent bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher. If cfg is nil, defaults are used.
func New(probe Probe, syncer Syncer, cfg *Config) (*Watcher, error) {
	if probe == nil {
		return nil, fmt.Errorf("probe cannot be nil")
	}
	if syncer == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 15 * time.Second
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 5 * time.Minute
	}
	if cfg.DebounceInterval < 0 {
		cfg.DebounceInterval = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[watcher] ", log.LstdFlags)
	}

	w := &Watcher{
		probe:  probe,
		syncer: syncer,
		config: cfg,
	}

	if cfg.OfflineMarker != "" {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create marker watcher: %w", err)
		}
		w.fsw = fsw
	}

	return w, nil
}

// Online reports the last effective connectivity state.
func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// Start begins watching. It blocks until ctx is cancelled.
//
// On startup the watcher probes once, pushes the initial state to the
// engine, and immediately triggers a sync if online; mutations queued
// while the process was down should not wait for the first timer tick.
func (w *Watcher) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	if w.fsw != nil {
		// Watch the marker's directory; the marker file itself may not
		// exist yet.
		dir := filepath.Dir(w.config.OfflineMarker)
		if err := os.MkdirAll(dir, 0755); err != nil {
			w.cancel()
			return fmt.Errorf("failed to create marker directory: %w", err)
		}
		if err := w.fsw.Add(dir); err != nil {
			w.cancel()
			return fmt.Errorf("failed to watch marker directory: %w", err)
		}
		w.mu.Lock()
		w.markerPresent = fileExists(w.config.OfflineMarker)
		w.mu.Unlock()
	}

	if online := w.refresh(ctx); online {
		w.config.Logger.Println("Online at startup, triggering sync")
		w.scheduleSync(ctx)
	} else {
		w.config.Logger.Println("Offline at startup")
	}

	w.wg.Add(2)
	go w.probeLoop(ctx)
	go w.periodicSyncLoop(ctx)
	if w.fsw != nil {
		w.wg.Add(1)
		go w.markerLoop(ctx)
	}

	<-ctx.Done()
	return w.Stop()
}

// Stop shuts the watcher down and waits for its goroutines.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsw != nil {
		if err := w.fsw.Close(); err != nil {
			w.config.Logger.Printf("Error closing marker watcher: %v", err)
		}
	}
	w.wg.Wait()
	return nil
}

// probeLoop checks reachability at the configured interval and reacts
// to state transitions.
func (w *Watcher) probeLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.evaluate(ctx)
		}
	}
}

// periodicSyncLoop re-runs sync at a fixed interval while online. A
// tick that lands during a running cycle is rejected by the engine's
// single-flight guard, which is the intended behavior.
func (w *Watcher) periodicSyncLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.Online() {
				continue
			}
			res := w.syncer.Sync(ctx)
			if res.Reason != "" {
				w.config.Logger.Printf("Periodic sync skipped: %s", res.Reason)
			}
		}
	}
}

// markerLoop watches for the offline-marker file appearing or
// disappearing and re-evaluates connectivity on each change.
func (w *Watcher) markerLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.config.OfflineMarker) {
				continue
			}
			present := fileExists(w.config.OfflineMarker)
			w.mu.Lock()
			changed := w.markerPresent != present
			w.markerPresent = present
			w.mu.Unlock()
			if changed {
				if present {
					w.config.Logger.Println("Offline marker set, forcing offline")
				} else {
					w.config.Logger.Println("Offline marker cleared")
				}
				w.evaluate(ctx)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Marker watcher error: %v", err)
		}
	}
}

// evaluate recomputes the effective state and, on an offline→online
// transition, schedules a debounced sync.
func (w *Watcher) evaluate(ctx context.Context) {
	wasOnline := w.Online()
	online := w.refresh(ctx)

	if online && !wasOnline {
		w.config.Logger.Println("Connectivity regained, scheduling sync")
		w.scheduleSync(ctx)
	} else if !online && wasOnline {
		w.config.Logger.Println("Connectivity lost")
	}
}

// refresh probes, folds in the marker override, records the effective
// state and pushes it to the engine. Returns the effective state.
func (w *Watcher) refresh(ctx context.Context) bool {
	reachable := w.probe.Check(ctx)

	w.mu.Lock()
	online := reachable && !w.markerPresent
	w.online = online
	w.mu.Unlock()

	w.syncer.SetOnline(ctx, online)
	return online
}

// scheduleSync runs a debounced sync on a tracked goroutine.
func (w *Watcher) scheduleSync(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.syncAfterDebounce(ctx)
	}()
}

// syncAfterDebounce waits out the debounce window and runs a sync if
// the connection held. A flapping link that drops again inside the
// window triggers nothing.
func (w *Watcher) syncAfterDebounce(ctx context.Context) {
	if w.config.DebounceInterval > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.config.DebounceInterval):
		}
		if !w.Online() {
			return
		}
	}

	res := w.syncer.Sync(ctx)
	if res.Reason != "" {
		w.config.Logger.Printf("Sync skipped: %s", res.Reason)
	} else if res.Err != nil {
		w.config.Logger.Printf("Sync failed: %v", res.Err)
	}
}

// fileExists reports whether path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
