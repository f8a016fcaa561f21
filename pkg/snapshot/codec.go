package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/n7apollo/gridflow/pkg/types"
)

// Decode parses a snapshot that is already at the current schema version.
// Use Chain.Migrate for data of unknown or historical versions.
func Decode(raw []byte) (*types.Snapshot, error) {
	var s types.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if s.Version != types.CurrentSchema {
		return nil, fmt.Errorf("%w: expected version %s, got %q", types.ErrSnapshotInvalid, types.CurrentSchema, s.Version)
	}
	normalize(&s)
	return &s, nil
}

// Encode serializes a snapshot in the stable wire shape, indented for
// human-diffable export files.
func Encode(s *types.Snapshot) ([]byte, error) {
	normalize(s)
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return raw, nil
}
