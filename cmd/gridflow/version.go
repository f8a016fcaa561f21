// Version command for the gridflow CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is the CLI release version.
const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gridflow version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gridflow", version)
	},
}
