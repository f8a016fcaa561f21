// Package importer drives the full snapshot import pipeline: detect the
// schema version, migrate to the current shape, validate and repair, write
// everything in one transaction, then reconcile orphans. Exporting the
// store back to the wire shape lives here too.
package importer

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/n7apollo/gridflow/pkg/index"
	"github.com/n7apollo/gridflow/pkg/snapshot"
	"github.com/n7apollo/gridflow/pkg/types"
)

// Phase names one stage of an import run.
type Phase string

// Import pipeline phases, in order. Failed is terminal and reachable only
// from Writing; every earlier phase degrades problems to warnings instead
// of failing.
const (
	PhaseDetecting   Phase = "detecting"
	PhaseMigrating   Phase = "migrating"
	PhaseValidating  Phase = "validating"
	PhaseWriting     Phase = "writing"
	PhaseReconciling Phase = "reconciling"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Coordinator runs snapshot imports against one store. Only one import may
// be in flight per store; concurrent calls are rejected rather than
// queued, since interleaved migrations against the same ID counters could
// mint colliding entity IDs. Coordinators built over the same store value
// share one guard.
type Coordinator struct {
	store     types.Store
	chain     *snapshot.Chain
	validator *snapshot.Validator
	idx       *index.Index
	ids       snapshot.IDGen
	log       *zap.Logger
	now       func() time.Time
	retries   int
	phase     atomic.Value // Phase
	importing *atomic.Bool
}

// flights holds the per-store import guard, keyed by the store value given
// to New.
var flights sync.Map // types.Store -> *atomic.Bool

func flightFor(store types.Store) *atomic.Bool {
	guard, _ := flights.LoadOrStore(store, new(atomic.Bool))
	return guard.(*atomic.Bool)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithClock sets the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIDGen sets the generator used for migration-extracted record IDs.
func WithIDGen(ids snapshot.IDGen) Option {
	return func(c *Coordinator) { c.ids = ids }
}

// New creates a Coordinator over the store. The config's retry budget
// bounds retries of transient store failures during the write phase.
func New(store types.Store, config types.Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		log:       zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
		retries:   config.RetryBudget(),
		importing: flightFor(store),
	}
	for _, opt := range opts {
		opt(c)
	}

	chainOpts := []snapshot.Option{snapshot.WithLogger(c.log)}
	validatorOpts := []snapshot.ValidatorOption{
		snapshot.WithValidatorLogger(c.log),
		snapshot.WithClock(c.now),
	}
	if c.ids != nil {
		chainOpts = append(chainOpts, snapshot.WithIDGen(c.ids))
		validatorOpts = append(validatorOpts, snapshot.WithValidatorIDGen(c.ids))
	}
	c.chain = snapshot.NewChain(chainOpts...)
	c.validator = snapshot.NewValidator(validatorOpts...)
	c.idx = index.New(store, index.WithLogger(c.log), index.WithClock(c.now))
	c.phase.Store(PhaseDone)
	return c
}

// Phase reports the stage the current (or last) import reached.
func (c *Coordinator) Phase() Phase {
	return c.phase.Load().(Phase)
}

// ImportSnapshot runs the whole pipeline on raw snapshot JSON of any known
// schema version. The store ends up holding exactly the snapshot's
// normalized contents plus derived relationship rows; on any failure it is
// left exactly as it was. A second call while one is running returns
// ErrImportInFlight.
func (c *Coordinator) ImportSnapshot(raw []byte) (*types.ImportStats, error) {
	if !c.importing.CompareAndSwap(false, true) {
		return nil, types.ErrImportInFlight
	}
	defer c.importing.Store(false)

	c.phase.Store(PhaseDetecting)
	c.phase.Store(PhaseMigrating)
	migrated, err := c.chain.Migrate(raw)
	if err != nil {
		return nil, err
	}
	c.log.Info("snapshot migrated",
		zap.String("detectedVersion", string(migrated.DetectedVersion)),
		zap.Int("steps", migrated.Steps),
		zap.Int("warnings", len(migrated.Warnings)))

	c.phase.Store(PhaseValidating)
	result := c.validator.Validate(migrated.Snapshot)
	if !result.IsValid {
		return nil, fmt.Errorf("%w: %d structural errors, first: %s",
			types.ErrSnapshotInvalid, len(result.Errors), result.Errors[0].Message)
	}

	stats := &types.ImportStats{
		DetectedVersion: migrated.DetectedVersion,
		MigrationSteps:  migrated.Steps,
		Written:         result.Stats,
		Fixes:           len(result.Fixes),
		Warnings:        append(migrated.Warnings, result.Warnings...),
	}

	c.phase.Store(PhaseWriting)
	rels := deriveRelationships(migrated.Snapshot, c.now())
	stats.Relationships = len(rels)
	if err := c.withRetry(func() error { return c.write(migrated.Snapshot, rels) }); err != nil {
		c.phase.Store(PhaseFailed)
		return nil, err
	}

	c.phase.Store(PhaseReconciling)
	recovered, err := c.reconcile(migrated.Snapshot)
	if err != nil {
		// The import itself committed; reconcile problems are warnings.
		c.log.Warn("orphan reconcile failed", zap.Error(err))
		stats.Warnings = append(stats.Warnings, types.Issue{
			Collection: types.PositionsCollection,
			Message:    fmt.Sprintf("orphan reconcile failed: %v", err),
		})
	}
	stats.RecoveredOrphans = recovered

	c.phase.Store(PhaseDone)
	c.log.Info("import finished",
		zap.Int("entities", stats.Written.Entities),
		zap.Int("relationships", stats.Relationships),
		zap.Int("recoveredOrphans", stats.RecoveredOrphans))
	return stats, nil
}

// write replaces the store's contents with the snapshot in one
// transaction. A failure anywhere rolls the whole load back.
func (c *Coordinator) write(s *types.Snapshot, rels []any) error {
	return c.store.Transaction(types.TxReadWrite, types.StandardCollections, func(tx types.Tx) error {
		for _, name := range types.StandardCollections {
			if err := clearCollection(tx, name); err != nil {
				return err
			}
		}

		batches := map[string][]any{
			types.EntitiesCollection:      entityBatch(s),
			types.BoardsCollection:        boardBatch(s),
			types.PeopleCollection:        anyBatch(s.People),
			types.TagsCollection:          anyBatch(s.Tags),
			types.CollectionsCollection:   anyBatch(s.Collections),
			types.PositionsCollection:     anyBatch(s.EntityPositions),
			types.WeeklyItemsCollection:   weeklyBatch(s),
			types.RelationshipsCollection: rels,
		}
		for _, name := range types.StandardCollections {
			coll, err := tx.Collection(name)
			if err != nil {
				return err
			}
			if err := coll.BulkPut(batches[name]); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
		}
		return nil
	})
}

// reconcile recovers orphaned entities onto the imported boards, smallest
// board ID first. Boards without a row or column to place into are
// skipped.
func (c *Coordinator) reconcile(s *types.Snapshot) (int, error) {
	boardIDs := make([]string, 0, len(s.Boards))
	for id := range s.Boards {
		boardIDs = append(boardIDs, id)
	}
	sort.Strings(boardIDs)

	total := 0
	for _, id := range boardIDs {
		report, err := c.idx.Recover(id)
		if errors.Is(err, types.ErrNoPlacement) {
			continue
		}
		if err != nil {
			return total, err
		}
		total += report.RecoveredCount
	}
	return total, nil
}

// withRetry retries fn on transient backend errors up to the configured
// budget, then surfaces the last error as fatal.
func (c *Coordinator) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
			c.log.Warn("retrying after transient store failure",
				zap.Int("attempt", attempt), zap.Error(err))
		}
		err = fn()
		if err == nil || !errors.Is(err, types.ErrBusy) {
			return err
		}
	}
	return fmt.Errorf("retry budget exhausted: %w", err)
}

// clearCollection deletes every record in the named collection through the
// open transaction.
func clearCollection(tx types.Tx, name string) error {
	coll, err := tx.Collection(name)
	if err != nil {
		return err
	}
	recs, err := coll.All()
	if err != nil {
		return err
	}
	for _, rec := range recs {
		id, err := anyRecordID(rec)
		if err != nil {
			return err
		}
		if err := coll.Delete(id); err != nil {
			return err
		}
	}
	return nil
}

func anyRecordID(rec any) (string, error) {
	switch r := rec.(type) {
	case *types.Entity:
		return r.ID, nil
	case *types.Board:
		return r.ID, nil
	case *types.Person:
		return r.ID, nil
	case *types.Tag:
		return r.ID, nil
	case *types.Collection:
		return r.ID, nil
	case *types.Position:
		return r.ID, nil
	case *types.WeeklyItem:
		return r.ID, nil
	case *types.Relationship:
		return r.ID, nil
	default:
		return "", fmt.Errorf("%w: unexpected record type %T", types.ErrInvalidData, rec)
	}
}

// deriveRelationships builds the relationship index rows from the
// snapshot's authoritative lists: entity tags become labeled links, entity
// people become tagged links, collection memberships become
// collection_member links. One row per unique pair. The snapshot's carried
// "related" rows have no source list, so they pass through with their IDs
// and timestamps intact.
func deriveRelationships(s *types.Snapshot, when time.Time) []any {
	var out []any
	seen := make(map[string]bool)
	add := func(entityID, relatedID, relType string) {
		key := entityID + "|" + relatedID + "|" + relType
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, &types.Relationship{
			EntityID:  entityID,
			RelatedID: relatedID,
			Type:      relType,
			CreatedAt: when,
		})
	}

	entityIDs := make([]string, 0, len(s.Entities))
	for id := range s.Entities {
		entityIDs = append(entityIDs, id)
	}
	sort.Strings(entityIDs)
	for _, id := range entityIDs {
		e := s.Entities[id]
		for _, tagID := range e.Tags {
			add(e.ID, tagID, types.RelLabeled)
		}
		for _, personID := range e.People {
			add(e.ID, personID, types.RelTagged)
		}
	}
	for _, c := range s.Collections {
		for _, entityID := range c.EntityIDs {
			add(entityID, c.ID, types.RelCollectionMember)
		}
	}
	for _, rel := range s.Relationships {
		out = append(out, rel)
	}
	return out
}

func entityBatch(s *types.Snapshot) []any {
	ids := make([]string, 0, len(s.Entities))
	for id := range s.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Entities[id])
	}
	return out
}

func boardBatch(s *types.Snapshot) []any {
	ids := make([]string, 0, len(s.Boards))
	for id := range s.Boards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Boards[id])
	}
	return out
}

func weeklyBatch(s *types.Snapshot) []any {
	weeks := make([]string, 0, len(s.WeeklyPlans))
	for week := range s.WeeklyPlans {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)
	var out []any
	for _, week := range weeks {
		for _, item := range s.WeeklyPlans[week].Items {
			out = append(out, item)
		}
	}
	return out
}

func anyBatch[T any](records []T) []any {
	out := make([]any, len(records))
	for i, rec := range records {
		out[i] = any(rec)
	}
	return out
}
