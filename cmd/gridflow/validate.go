// Validate command checks a snapshot file and reports what a repair pass
// would do.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/n7apollo/gridflow/pkg/snapshot"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a snapshot file",
	Long: `Validate migrates the file to the current schema, runs the
structural validator, and prints the verdict as JSON. The store is not
involved. Exit status is non-zero when the snapshot has structural errors.

Example:
  gridflow validate backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
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
	migrated, err := chain.Migrate(raw)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	result := snapshot.NewValidator(snapshot.WithValidatorLogger(log)).Validate(migrated.Snapshot)
	result.Warnings = append(migrated.Warnings, result.Warnings...)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	fmt.Println(string(out))

	if !result.IsValid {
		return fmt.Errorf("snapshot has %d structural errors", len(result.Errors))
	}
	return nil
}
