package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avasilenko/pocketledger/internal/connectivity"
	"github.com/avasilenko/pocketledger/internal/dashboard"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon",
	Long: `Run the background sync daemon.

The daemon watches connectivity, syncs pending local changes to the
remote API when a connection is available, and serves a live status
dashboard over websocket.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	logger := newLogger("[daemon] ")

	watcherCfg := connectivity.DefaultConfig()
	watcherCfg.ProbeInterval = viper.GetDuration("probe_interval")
	watcherCfg.SyncInterval = viper.GetDuration("sync_interval")
	watcherCfg.DebounceInterval = viper.GetDuration("debounce_interval")
	watcherCfg.OfflineMarker = viper.GetString("offline_marker")
	watcherCfg.Logger = newLogger("[connectivity] ")

	probe := &connectivity.HTTPProbe{Pinger: sess.remote}
	watcher, err := connectivity.New(probe, sess.engine, watcherCfg)
	if err != nil {
		return fmt.Errorf("failed to create connectivity watcher: %w", err)
	}

	srv := dashboard.NewServer(&dashboard.Config{
		Addr:   viper.GetString("listen_addr"),
		Status: sess.engine.CurrentStatus,
		Logger: newLogger("[dashboard] "),
	})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start dashboard: %w", err)
	}
	defer func() {
		if err := srv.Stop(); err != nil {
			logger.Printf("dashboard shutdown: %v", err)
		}
	}()

	handler := dashboard.NewHandler(srv, newLogger("[dashboard] "))
	go handler.Run(ctx, sess.broadcaster)

	logger.Printf("daemon started (owner=%s, dashboard=%s)", sess.owner, srv.GetAddr())
	fmt.Printf("Sync daemon running. Dashboard at http://%s/status\n", srv.GetAddr())
	fmt.Println("Press Ctrl+C to stop.")

	// Blocks until the context is cancelled.
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("connectivity watcher failed: %w", err)
	}

	logger.Printf("daemon stopped")
	return nil
}
