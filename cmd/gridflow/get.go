// Get command retrieves a record by ID from a collection.
package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n7apollo/gridflow/pkg/types"
)

var getCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Get a record by ID",
	Long: `Get retrieves a record from the named collection by its ID.

Valid collections: ` + validCollectionsStr + `

Example:
  gridflow get entities entity-1`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	name, id := args[0], args[1]

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	coll, err := store.Collection(name)
	if err != nil {
		if errors.Is(err, types.ErrCollectionNotFound) {
			return fmt.Errorf("unknown collection %q (valid: %s)", name, validCollectionsStr)
		}
		return fmt.Errorf("get collection: %w", err)
	}

	rec, err := coll.Get(id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("record %q not found in %q", id, name)
		}
		return fmt.Errorf("get record: %w", err)
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
