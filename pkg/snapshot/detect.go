package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/n7apollo/gridflow/pkg/types"
)

// Detect infers the schema version of a raw snapshot document. An explicit
// version field wins when it names a known version; otherwise structural
// fingerprints are tested in descending-version order and the first match
// decides. A document matching no fingerprint is treated as already
// current: unrecognized-but-plausible data must not be destructively
// re-migrated. Detect has no side effects.
func Detect(doc map[string]any) types.SchemaVersion {
	if v, ok := doc["version"].(string); ok {
		if tag := types.SchemaVersion(v); types.KnownSchema(tag) {
			return tag
		}
	}

	hasEntities := isMap(doc["entities"])
	positions, hasPositions := doc["entityPositions"].([]any)

	switch {
	case hasEntities && hasPositions && !indexAddressed(positions):
		return types.SchemaV7
	case hasPositions:
		return types.SchemaV6
	case hasEntities:
		return types.SchemaV5
	case doc["weeklyPlans"] != nil:
		return types.SchemaV4
	case doc["people"] != nil || doc["tags"] != nil:
		return types.SchemaV3
	case isMap(doc["boards"]):
		return types.SchemaV2
	case isSlice(doc["rows"]):
		return types.SchemaV1
	default:
		return types.SchemaV7
	}
}

// DetectRaw parses raw JSON and runs Detect on it.
func DetectRaw(raw []byte) (types.SchemaVersion, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("parsing snapshot: %w", err)
	}
	return Detect(doc), nil
}

// indexAddressed reports whether any position record addresses its cell by
// numeric row/column index, the 6.0 convention replaced by rowId/columnKey
// in 7.0.
func indexAddressed(positions []any) bool {
	for _, p := range positions {
		rec, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := rec["row"].(float64); ok {
			return true
		}
		if _, ok := rec["column"].(float64); ok {
			return true
		}
	}
	return false
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func isSlice(v any) bool {
	_, ok := v.([]any)
	return ok
}
