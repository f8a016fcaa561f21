// Export command serializes the store to the wire snapshot format.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/n7apollo/gridflow/pkg/snapshot"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the store as a snapshot file",
	Long: `Export reads the whole store in one transaction and writes a
snapshot at the current schema version. With no file argument the snapshot
goes to stdout.

Example:
  gridflow export backup.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := newCoordinator(store, cfg, log).Export()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	raw, err := snapshot.Encode(snap)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if len(args) == 0 {
		fmt.Println(string(raw))
		return nil
	}
	if err := os.WriteFile(args[0], raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Println("Exported to", args[0])
	return nil
}
