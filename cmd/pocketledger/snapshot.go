package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avasilenko/pocketledger/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a JSONL snapshot of the local ledger",
	Long: `Write a JSONL snapshot of the local ledger.

The snapshot contains every live record. Use "-" to write to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a JSONL snapshot into the local ledger",
	Long: `Load a JSONL snapshot into the local ledger.

Records already present locally are left untouched; only missing ones
are inserted. The snapshot owner must match the configured owner.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	out := os.Stdout
	if args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create snapshot file: %w", err)
		}
		defer f.Close()
		out = f
	}

	result, err := export.Export(ctx, sess.store, sess.owner, out)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if args[0] != "-" {
		fmt.Printf("Exported %d record(s) to %s\n", result.Total(), args[0])
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	in := os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open snapshot file: %w", err)
		}
		defer f.Close()
		in = f
	}

	result, err := export.Import(ctx, sess.store, sess.owner, in)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Imported %d record(s), skipped %d already present\n",
		result.Total(), result.Skipped)
	return nil
}
