package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	sess.goOnline(ctx)

	st := sess.engine.CurrentStatus(ctx)

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	state := "offline"
	if st.Online {
		state = "online"
	}
	fmt.Printf("Connection:  %s\n", state)
	fmt.Printf("Pending:     %d queued operation(s)\n", st.PendingCount)
	if st.StuckCount > 0 {
		fmt.Printf("Stuck:       %d record(s) gave up uploading\n", st.StuckCount)
	}
	if st.LastSyncAt != nil {
		fmt.Printf("Last sync:   %s\n", st.LastSyncAt.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Printf("Last sync:   never\n")
	}
	return nil
}
