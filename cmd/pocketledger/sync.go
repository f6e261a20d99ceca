package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncFull bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync pending changes with the remote API",
	Long: `Sync pending changes with the remote API.

Uploads queued local writes in order, then downloads remote records
that are missing locally. With --full, the last-sync marker is cleared
first so the download covers the complete remote dataset.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "clear the last-sync marker and download everything")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	if !sess.goOnline(ctx) {
		return fmt.Errorf("remote API is unreachable, changes remain queued")
	}

	sync := sess.engine.Sync
	if syncFull {
		sync = sess.engine.ForceFullSync
	}
	result := sync(ctx)
	if !result.Success {
		if result.Err != nil {
			return fmt.Errorf("sync failed: %w", result.Err)
		}
		return fmt.Errorf("sync did not run: %s", result.Reason)
	}

	fmt.Printf("Sync complete: %d uploaded, %d failed, %d gave up, %d merged\n",
		result.Uploaded, result.Failed, result.Evicted, result.Merged)
	return nil
}
