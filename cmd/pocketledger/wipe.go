package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var wipeForce bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Erase all local data",
	Long: `Erase all local data.

Clears every local record, the pending upload queue, and the last-sync
marker. Remote data is not touched. Queued changes that have not been
uploaded yet are lost.`,
	RunE: runWipe,
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeForce, "force", false, "skip confirmation")
	rootCmd.AddCommand(wipeCmd)
}

func runWipe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	if !wipeForce {
		pending, _ := sess.app.PendingCount(ctx)
		if pending > 0 {
			fmt.Printf("Warning: %d queued operation(s) have not been uploaded and will be lost.\n", pending)
		}
		fmt.Print("Erase all local data? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := sess.app.SignOut(ctx); err != nil {
		return fmt.Errorf("failed to erase local data: %w", err)
	}

	fmt.Println("Local data erased.")
	return nil
}
