// Package main provides the gridflow CLI: a local-first task and board
// store with versioned snapshot import/export.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
