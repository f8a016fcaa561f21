// Package snapshot implements the versioned snapshot pipeline: version
// detection, the migration chain that lifts any historical snapshot shape
// to the current schema, the structural validator, and the wire codec.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/n7apollo/gridflow/pkg/types"
)

// step is one link of the migration chain: a total transform from one
// schema version to the next. The typed upgrade functions live in
// upgrade.go; the wrappers here only re-establish the concrete type that
// the previous step produced.
type step struct {
	from  types.SchemaVersion
	to    types.SchemaVersion
	apply func(cx *chainContext, in any) any
}

// chainSteps is the ordered migration chain. Every consecutive version
// pair has exactly one step; Migrate folds the tail of this table over the
// decoded snapshot.
var chainSteps = []step{
	{types.SchemaV1, types.SchemaV2, func(cx *chainContext, in any) any { return upgradeV1(cx, in.(*snapshotV1)) }},
	{types.SchemaV2, types.SchemaV3, func(cx *chainContext, in any) any { return upgradeV2(cx, in.(*snapshotV2)) }},
	{types.SchemaV3, types.SchemaV4, func(cx *chainContext, in any) any { return upgradeV3(cx, in.(*snapshotV3)) }},
	{types.SchemaV4, types.SchemaV5, func(cx *chainContext, in any) any { return upgradeV4(cx, in.(*snapshotV4)) }},
	{types.SchemaV5, types.SchemaV6, func(cx *chainContext, in any) any { return upgradeV5(cx, in.(*snapshotV5)) }},
	{types.SchemaV6, types.SchemaV7, func(cx *chainContext, in any) any { return upgradeV6(cx, in.(*snapshotV6)) }},
}

// chainContext carries the injected ID generator and the warning sink
// through one migration run.
type chainContext struct {
	ids      IDGen
	log      *zap.Logger
	warnings []types.Issue
}

// warn records a non-fatal migration problem. Transforms degrade data and
// warn; they never abort.
func (cx *chainContext) warn(collection, recordID, message string) {
	cx.warnings = append(cx.warnings, types.Issue{
		Collection: collection,
		RecordID:   recordID,
		Message:    message,
	})
	cx.log.Warn("migration warning",
		zap.String("collection", collection),
		zap.String("recordId", recordID),
		zap.String("message", message))
}

// Chain migrates raw snapshots of any known schema version to the current
// one.
type Chain struct {
	ids IDGen
	log *zap.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithIDGen injects the ID generator used for migration-extracted records.
func WithIDGen(ids IDGen) Option {
	return func(c *Chain) { c.ids = ids }
}

// WithLogger sets the logger for migration warnings.
func WithLogger(log *zap.Logger) Option {
	return func(c *Chain) { c.log = log }
}

// NewChain creates a migration chain. By default warnings are discarded
// and extracted records get sequential IDs from a fresh generator per run.
func NewChain(opts ...Option) *Chain {
	c := &Chain{log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MigrateResult is the outcome of one migration run.
type MigrateResult struct {
	Snapshot        *types.Snapshot
	DetectedVersion types.SchemaVersion
	Steps           int
	Warnings        []types.Issue
}

// Migrate detects the schema version of raw and applies every remaining
// chain step in order. Already-current data passes through unchanged up to
// filled-in empty containers, so migrating twice equals migrating once.
// Only undecodable input fails; structural damage inside a decodable
// snapshot degrades to warnings.
func (c *Chain) Migrate(raw []byte) (*MigrateResult, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	version := Detect(doc)

	decoded, err := decodeVersion(version, raw)
	if err != nil {
		return nil, err
	}

	ids := c.ids
	if ids == nil {
		ids = NewSeqIDGen()
	}
	cx := &chainContext{ids: ids, log: c.log}

	start := types.SchemaIndex(version)
	cur := decoded
	for _, st := range chainSteps[start:] {
		cur = st.apply(cx, cur)
	}

	snap := cur.(*types.Snapshot)
	normalize(snap)
	return &MigrateResult{
		Snapshot:        snap,
		DetectedVersion: version,
		Steps:           len(chainSteps) - start,
		Warnings:        cx.warnings,
	}, nil
}

// decodeVersion unmarshals raw into the concrete struct for its version.
func decodeVersion(version types.SchemaVersion, raw []byte) (any, error) {
	var (
		decoded any
		err     error
	)
	switch version {
	case types.SchemaV1:
		v := &snapshotV1{}
		err = json.Unmarshal(raw, v)
		decoded = v
	case types.SchemaV2:
		v := &snapshotV2{}
		err = json.Unmarshal(raw, v)
		decoded = v
	case types.SchemaV3:
		v := &snapshotV3{}
		err = json.Unmarshal(raw, v)
		decoded = v
	case types.SchemaV4:
		v := &snapshotV4{}
		err = json.Unmarshal(raw, v)
		decoded = v
	case types.SchemaV5:
		v := &snapshotV5{}
		err = json.Unmarshal(raw, v)
		decoded = v
	case types.SchemaV6:
		v := &snapshotV6{}
		err = json.Unmarshal(raw, v)
		decoded = v
	case types.SchemaV7:
		v := &types.Snapshot{}
		err = json.Unmarshal(raw, v)
		decoded = v
	default:
		return nil, fmt.Errorf("%w: unknown schema version %q", types.ErrInvalidData, version)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s snapshot: %w", version, err)
	}
	return decoded, nil
}

// normalize fills nil containers and pins the version tag. This is the
// only bookkeeping applied to already-current snapshots.
func normalize(s *types.Snapshot) {
	s.Version = types.CurrentSchema
	if s.Entities == nil {
		s.Entities = make(map[string]*types.Entity)
	}
	if s.Boards == nil {
		s.Boards = make(map[string]*types.Board)
	}
	if s.People == nil {
		s.People = []*types.Person{}
	}
	if s.Tags == nil {
		s.Tags = []*types.Tag{}
	}
	if s.Collections == nil {
		s.Collections = []*types.Collection{}
	}
	if s.EntityPositions == nil {
		s.EntityPositions = []*types.Position{}
	}
	if s.WeeklyPlans == nil {
		s.WeeklyPlans = make(map[string]*types.WeeklyPlan)
	}
}

// sortedKeys returns the map's keys in ascending order. Migration output
// must not depend on Go map iteration order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
