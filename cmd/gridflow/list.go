// List command enumerates a collection, optionally filtered by an indexed
// field.
package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n7apollo/gridflow/pkg/types"
)

var (
	flagListField string
	flagListValue string
)

var listCmd = &cobra.Command{
	Use:   "list <collection>",
	Short: "List records in a collection",
	Long: `List prints every record in the named collection as a JSON array,
or just the records matching --field/--value.

Valid collections: ` + validCollectionsStr + `

Example:
  gridflow list entities
  gridflow list positions --field boardId --value board-1`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&flagListField, "field", "", "indexed field to filter on")
	listCmd.Flags().StringVar(&flagListValue, "value", "", "value the field must equal")
}

func runList(cmd *cobra.Command, args []string) error {
	name := args[0]
	if (flagListField == "") != (flagListValue == "") {
		return fmt.Errorf("--field and --value must be used together")
	}

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

	var recs []any
	if flagListField != "" {
		recs, err = coll.Where(flagListField, flagListValue)
		if errors.Is(err, types.ErrInvalidFilter) {
			return fmt.Errorf("field %q is not indexed for %q", flagListField, name)
		}
	} else {
		recs, err = coll.All()
	}
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	out, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
