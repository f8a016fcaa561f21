// Init command for the gridflow CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize gridflow storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		if err := ensureConfigDir(configDir); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		if err := ensureDefaultConfigFile(configDir); err != nil {
			return fmt.Errorf("init: %w", err)
		}

		// Opening the store creates the data directory and the schema.
		store, cfg, err := openStore()
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		defer store.Close()

		fmt.Println("Gridflow initialized successfully")
		fmt.Println("  config:", configDir)
		fmt.Println("  data:  ", cfg.DataDir)
		return nil
	},
}
