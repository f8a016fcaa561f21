package importer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n7apollo/gridflow/pkg/index"
	"github.com/n7apollo/gridflow/pkg/snapshot"
	"github.com/n7apollo/gridflow/pkg/sqlite"
	"github.com/n7apollo/gridflow/pkg/types"
)

var importClock = func() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) types.Store {
	t.Helper()
	store := sqlite.NewStore()
	err := store.Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestCoordinator(t *testing.T, store types.Store) *Coordinator {
	t.Helper()
	return New(store, types.Config{Backend: types.BackendSQLite},
		WithClock(importClock),
		WithIDGen(snapshot.NewSeqIDGen()))
}

// boardSnapshot builds a current-version snapshot with one board and the
// given entities, none of them placed.
func boardSnapshot(entityIDs ...string) *types.Snapshot {
	s := types.NewSnapshot()
	s.Boards["b1"] = &types.Board{
		ID:      "b1",
		Name:    "Main",
		Rows:    []types.Row{{ID: "r1", Name: "Row 1"}},
		Columns: []types.Column{{ID: "c1", Key: "todo", Name: "To Do"}},
	}
	for _, id := range entityIDs {
		s.Entities[id] = &types.Entity{ID: id, Type: types.EntityTask, Title: id}
	}
	return s
}

func encode(t *testing.T, s *types.Snapshot) []byte {
	t.Helper()
	raw, err := snapshot.Encode(s)
	require.NoError(t, err)
	return raw
}

func TestImportLegacySnapshot(t *testing.T) {
	store := newTestStore(t)
	c := newTestCoordinator(t, store)

	raw := `{
		"groups":  [{"id":1,"name":"G"}],
		"rows":    [{"id":1,"groupId":1,"cards":{"todo":[{"id":1,"title":"X"}]}}],
		"columns": [{"id":1,"key":"todo","name":"To Do"}]
	}`
	stats, err := c.ImportSnapshot([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, types.SchemaV1, stats.DetectedVersion)
	assert.Equal(t, 6, stats.MigrationSteps)
	assert.Equal(t, 1, stats.Written.Entities)
	assert.Equal(t, 1, stats.Written.Boards)
	assert.Equal(t, 1, stats.Written.Positions)
	assert.Equal(t, 0, stats.RecoveredOrphans)
	assert.Empty(t, stats.Warnings)
	assert.Equal(t, PhaseDone, c.Phase())

	entities, err := store.Collection(types.EntitiesCollection)
	require.NoError(t, err)
	rec, err := entities.Get("entity-1")
	require.NoError(t, err)
	assert.Equal(t, "X", rec.(*types.Entity).Title)

	ix := index.New(store)
	pos, err := ix.GetPosition("entity-1", "board-1", types.ContextBoard)
	require.NoError(t, err)
	assert.Equal(t, "todo", pos.ColumnKey)
}

func TestImportDerivesRelationships(t *testing.T) {
	store := newTestStore(t)
	c := newTestCoordinator(t, store)

	s := boardSnapshot("e1")
	s.Entities["e1"].Tags = []string{"t1"}
	s.Entities["e1"].People = []string{"p1"}
	s.Tags = []*types.Tag{{ID: "t1", Name: "urgent"}}
	s.People = []*types.Person{{ID: "p1", Name: "Ada"}}
	s.Collections = []*types.Collection{{ID: "col1", Name: "Inbox", EntityIDs: []string{"e1"}}}

	stats, err := c.ImportSnapshot(encode(t, s))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Relationships)
	// Collection membership places e1, so it is not an orphan.
	assert.Equal(t, 0, stats.RecoveredOrphans)

	ix := index.New(store)
	for _, relType := range []string{types.RelLabeled, types.RelTagged, types.RelCollectionMember} {
		rels, err := ix.RelatedTo("e1", relType)
		require.NoError(t, err)
		assert.Len(t, rels, 1, "one %s row", relType)
	}
}

func TestImportRecoversOrphans(t *testing.T) {
	store := newTestStore(t)
	c := newTestCoordinator(t, store)

	stats, err := c.ImportSnapshot(encode(t, boardSnapshot("lost")))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RecoveredOrphans)

	ix := index.New(store)
	pos, err := ix.GetPosition("lost", "b1", types.ContextBoard)
	require.NoError(t, err)
	assert.Equal(t, "r1", pos.RowID)
	assert.Equal(t, "todo", pos.ColumnKey)
}

func TestImportDanglingPositionBecomesWarning(t *testing.T) {
	store := newTestStore(t)
	c := newTestCoordinator(t, store)

	s := boardSnapshot()
	pos := &types.Position{EntityID: "ghost", BoardID: "b1", Context: types.ContextBoard, RowID: "r1", ColumnKey: "todo"}
	pos.ID = pos.Key()
	s.EntityPositions = []*types.Position{pos}

	stats, err := c.ImportSnapshot(encode(t, s))
	require.NoError(t, err, "dangling placement is repairable, not fatal")
	assert.NotEmpty(t, stats.Warnings)
	assert.Equal(t, 0, stats.Written.Positions)
}

func TestImportPositionWithoutBoardBecomesWarning(t *testing.T) {
	store := newTestStore(t)
	c := newTestCoordinator(t, store)

	s := boardSnapshot("e1")
	s.EntityPositions = []*types.Position{{EntityID: "e1", Context: types.ContextWeekly}}

	stats, err := c.ImportSnapshot(encode(t, s))
	require.NoError(t, err, "a board-less placement never reaches the write phase")
	assert.NotEmpty(t, stats.Warnings)
	assert.Equal(t, 0, stats.Written.Positions)
	assert.Equal(t, PhaseDone, c.Phase())
}

func TestImportRoundTrip(t *testing.T) {
	store := newTestStore(t)
	c := newTestCoordinator(t, store)

	s := boardSnapshot("e1", "e2")
	s.Entities["e1"].Tags = []string{"t1"}
	s.Tags = []*types.Tag{{ID: "t1", Name: "urgent"}}
	pos := &types.Position{EntityID: "e1", BoardID: "b1", Context: types.ContextBoard, RowID: "r1", ColumnKey: "todo"}
	pos.ID = pos.Key()
	s.EntityPositions = []*types.Position{pos}
	item := &types.WeeklyItem{WeekKey: "2026-W10", EntityID: "e2", Day: types.DayMonday}
	item.ID = item.Key()
	s.WeeklyPlans["2026-W10"] = &types.WeeklyPlan{Items: []*types.WeeklyItem{item}}

	_, err := c.ImportSnapshot(encode(t, s))
	require.NoError(t, err)

	first, err := c.Export()
	require.NoError(t, err)

	store2 := newTestStore(t)
	c2 := newTestCoordinator(t, store2)
	stats, err := c2.ImportSnapshot(encode(t, first))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.MigrationSteps)
	assert.Empty(t, stats.Warnings)

	second, err := c2.Export()
	require.NoError(t, err)
	assert.Equal(t, encode(t, first), encode(t, second))
}

func TestRelatedLinksSurviveRoundTrip(t *testing.T) {
	store := newTestStore(t)
	c := newTestCoordinator(t, store)

	_, err := c.ImportSnapshot(encode(t, boardSnapshot("a", "b")))
	require.NoError(t, err)
	ix := index.New(store, index.WithClock(importClock))
	_, err = ix.Link("a", "b", types.RelRelated)
	require.NoError(t, err)

	first, err := c.Export()
	require.NoError(t, err)
	require.Len(t, first.Relationships, 1, "related rows are carried in the snapshot")

	store2 := newTestStore(t)
	c2 := newTestCoordinator(t, store2)
	_, err = c2.ImportSnapshot(encode(t, first))
	require.NoError(t, err)

	rels, err := index.New(store2).RelatedTo("a", types.RelRelated)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "b", rels[0].RelatedID)

	second, err := c2.Export()
	require.NoError(t, err)
	assert.Equal(t, encode(t, first), encode(t, second))
}

func TestImportInvalidSnapshotLeavesStoreUntouched(t *testing.T) {
	store := newTestStore(t)
	c := newTestCoordinator(t, store)

	_, err := c.ImportSnapshot(encode(t, boardSnapshot("keeper")))
	require.NoError(t, err)

	bad := boardSnapshot()
	bad.Entities["nil"] = nil
	_, err = c.ImportSnapshot(encode(t, bad))
	require.ErrorIs(t, err, types.ErrSnapshotInvalid)

	entities, err := store.Collection(types.EntitiesCollection)
	require.NoError(t, err)
	_, err = entities.Get("keeper")
	assert.NoError(t, err, "failed import must not touch the store")
}

func TestImportRejectsUnparsableInput(t *testing.T) {
	store := newTestStore(t)
	c := newTestCoordinator(t, store)

	_, err := c.ImportSnapshot([]byte("not json"))
	require.Error(t, err)
	assert.Equal(t, PhaseMigrating, c.Phase(), "never reached the write phase")
}

// gatedStore blocks the first read-write transaction until released, so a
// test can observe the coordinator mid-import.
type gatedStore struct {
	types.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Transaction(mode types.TxMode, collections []string, fn func(tx types.Tx) error) error {
	if mode == types.TxReadWrite {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.Store.Transaction(mode, collections, fn)
}

func TestImportSingleFlight(t *testing.T) {
	gate := &gatedStore{
		Store:   newTestStore(t),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := newTestCoordinator(t, gate)

	done := make(chan error, 1)
	go func() {
		_, err := c.ImportSnapshot(encode(t, boardSnapshot("e1")))
		done <- err
	}()

	<-gate.entered
	_, err := c.ImportSnapshot(encode(t, boardSnapshot("e2")))
	assert.ErrorIs(t, err, types.ErrImportInFlight)

	// The guard is per store, not per coordinator: a second coordinator
	// over the same store is rejected too.
	other := newTestCoordinator(t, gate)
	_, err = other.ImportSnapshot(encode(t, boardSnapshot("e2")))
	assert.ErrorIs(t, err, types.ErrImportInFlight)

	close(gate.release)
	require.NoError(t, <-done)

	// The first import has finished; a fresh one is accepted again.
	_, err = c.ImportSnapshot(encode(t, boardSnapshot("e3")))
	assert.NoError(t, err)
}

// flakyStore fails the first n read-write transactions with a transient
// backend error.
type flakyStore struct {
	types.Store
	failures int
	attempts int
}

func (f *flakyStore) Transaction(mode types.TxMode, collections []string, fn func(tx types.Tx) error) error {
	if mode == types.TxReadWrite {
		f.attempts++
		if f.attempts <= f.failures {
			return types.ErrBusy
		}
	}
	return f.Store.Transaction(mode, collections, fn)
}

func TestImportRetriesTransientFailures(t *testing.T) {
	flaky := &flakyStore{Store: newTestStore(t), failures: 2}
	c := New(flaky, types.Config{Backend: types.BackendSQLite, MaxRetries: 2},
		WithClock(importClock),
		WithIDGen(snapshot.NewSeqIDGen()))

	stats, err := c.ImportSnapshot(encode(t, boardSnapshot("e1")))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written.Entities)
	assert.Equal(t, PhaseDone, c.Phase())
}

func TestImportExhaustsRetryBudget(t *testing.T) {
	flaky := &flakyStore{Store: newTestStore(t), failures: 100}
	c := New(flaky, types.Config{Backend: types.BackendSQLite, MaxRetries: 1},
		WithClock(importClock))

	_, err := c.ImportSnapshot(encode(t, boardSnapshot("e1")))
	require.ErrorIs(t, err, types.ErrBusy)
	assert.Equal(t, PhaseFailed, c.Phase())
	assert.Equal(t, 2, flaky.attempts, "initial attempt plus one retry")
}
