// Migrate command lifts a snapshot file to the current schema version
// without touching the store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/n7apollo/gridflow/pkg/snapshot"
)

var flagMigrateOut string

var migrateCmd = &cobra.Command{
	Use:   "migrate <file>",
	Short: "Migrate a snapshot file to the current schema version",
	Long: `Migrate detects the file's schema version and applies every
migration step, printing the result (or writing it with -o). The store is
not involved; use import to load the result.

Example:
  gridflow migrate old-backup.json -o new-backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVarP(&flagMigrateOut, "output", "o", "", "write migrated snapshot to file instead of stdout")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	chain := snapshot.NewChain(snapshot.WithLogger(log))
	result, err := chain.Migrate(raw)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	out, err := snapshot.Encode(result.Snapshot)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s %s: %s\n", w.Collection, w.RecordID, w.Message)
	}
	if flagMigrateOut == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(flagMigrateOut, out, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Printf("Migrated %s snapshot (%d steps) to %s\n",
		result.DetectedVersion, result.Steps, flagMigrateOut)
	return nil
}
