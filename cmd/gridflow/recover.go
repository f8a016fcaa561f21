// Recover command places orphaned entities back onto a board.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n7apollo/gridflow/pkg/index"
)

var recoverCmd = &cobra.Command{
	Use:   "recover <boardId>",
	Short: "Place orphaned entities onto a board",
	Long: `Recover finds entities with no placement anywhere (no position,
no weekly item, no collection membership) and places them into the board's
first row and first column. Safe to run repeatedly; a second run finds
nothing to do.

Example:
  gridflow recover board-1`,
	Args: cobra.ExactArgs(1),
	RunE: runRecover,
}

func runRecover(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := index.New(store, index.WithLogger(log)).Recover(args[0])
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}

	if report.RecoveredCount == 0 {
		fmt.Println("No orphaned entities found")
		return nil
	}
	fmt.Printf("Recovered %d entities to board %s row %s column %s\n",
		report.RecoveredCount,
		report.PlacementLocation.BoardID,
		report.PlacementLocation.RowID,
		report.PlacementLocation.ColumnKey)
	return nil
}
