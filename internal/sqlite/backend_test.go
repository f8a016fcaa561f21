package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n7apollo/gridflow/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	err := s.Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	require.NoError(t, s.Open(cfg))
	assert.ErrorIs(t, s.Open(cfg), types.ErrAlreadyOpen)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err := s.Collection(types.EntitiesCollection)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestOpenRejectsBadConfig(t *testing.T) {
	s := NewStore()
	err := s.Open(types.Config{Backend: "leveldb", DataDir: t.TempDir()})
	require.Error(t, err)
}

func TestUnknownCollection(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Collection("widgets")
	assert.ErrorIs(t, err, types.ErrCollectionNotFound)
}

func TestCollectionRecordCRUD(t *testing.T) {
	s := openTestStore(t)
	var colls types.Table
	colls, err := s.Collection(types.CollectionsCollection)
	require.NoError(t, err)

	_, err = colls.Put(&types.Collection{ID: "col-1", Name: "Inbox", EntityIDs: []string{"e1"}})
	require.NoError(t, err)

	rec, err := colls.Get("col-1")
	require.NoError(t, err)
	got := rec.(*types.Collection)
	assert.Equal(t, "Inbox", got.Name)
	assert.Equal(t, []string{"e1"}, got.EntityIDs)
}

func TestEntityCRUD(t *testing.T) {
	s := openTestStore(t)
	entities, err := s.Collection(types.EntitiesCollection)
	require.NoError(t, err)

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e := &types.Entity{
		ID:        "entity-1",
		Type:      types.EntityTask,
		Title:     "Write report",
		Content:   "quarterly numbers",
		Priority:  types.PriorityHigh,
		Tags:      []string{"tag-1"},
		People:    []string{"person-1"},
		CreatedAt: created,
		UpdatedAt: created,
	}
	id, err := entities.Put(e)
	require.NoError(t, err)
	assert.Equal(t, "entity-1", id)

	rec, err := entities.Get("entity-1")
	require.NoError(t, err)
	got := rec.(*types.Entity)
	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, types.EntityTask, got.Type)
	assert.Equal(t, []string{"tag-1"}, got.Tags)
	assert.Equal(t, []string{"person-1"}, got.People)
	assert.True(t, got.CreatedAt.Equal(created))

	// Upsert by ID.
	e.Completed = true
	_, err = entities.Put(e)
	require.NoError(t, err)
	rec, err = entities.Get("entity-1")
	require.NoError(t, err)
	assert.True(t, rec.(*types.Entity).Completed)

	require.NoError(t, entities.Delete("entity-1"))
	_, err = entities.Get("entity-1")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, entities.Delete("entity-1"), types.ErrNotFound)
}

func TestGetEmptyID(t *testing.T) {
	s := openTestStore(t)
	entities, err := s.Collection(types.EntitiesCollection)
	require.NoError(t, err)

	_, err = entities.Get("")
	assert.ErrorIs(t, err, types.ErrInvalidID)
	assert.ErrorIs(t, entities.Delete(""), types.ErrInvalidID)
}

func TestPutMintsID(t *testing.T) {
	s := openTestStore(t)
	entities, err := s.Collection(types.EntitiesCollection)
	require.NoError(t, err)

	id, err := entities.Put(&types.Entity{Type: types.EntityNote, Title: "untitled"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := entities.Get(id)
	require.NoError(t, err)
	got := rec.(*types.Entity)
	assert.False(t, got.CreatedAt.IsZero(), "created timestamp defaulted")
	assert.False(t, got.UpdatedAt.IsZero(), "updated timestamp defaulted")
}

func TestPutRejectsWrongType(t *testing.T) {
	s := openTestStore(t)
	entities, err := s.Collection(types.EntitiesCollection)
	require.NoError(t, err)

	_, err = entities.Put(&types.Board{ID: "board-1"})
	assert.ErrorIs(t, err, types.ErrInvalidData)

	_, err = entities.Put(&types.Entity{ID: "x", Type: "widget"})
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestPositionDerivedKey(t *testing.T) {
	s := openTestStore(t)
	positions, err := s.Collection(types.PositionsCollection)
	require.NoError(t, err)

	p := &types.Position{
		EntityID:  "entity-1",
		BoardID:   "board-1",
		Context:   types.ContextBoard,
		RowID:     "row-1",
		ColumnKey: "todo",
		Order:     0,
	}
	id, err := positions.Put(p)
	require.NoError(t, err)
	assert.Equal(t, types.PositionID("entity-1", "board-1", types.ContextBoard), id)

	// Same triple overwrites instead of duplicating.
	p2 := *p
	p2.ColumnKey = "done"
	_, err = positions.Put(&p2)
	require.NoError(t, err)

	recs, err := positions.Where("entityId", "entity-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "done", recs[0].(*types.Position).ColumnKey)
}

func TestWeeklyItemDerivedKey(t *testing.T) {
	s := openTestStore(t)
	items, err := s.Collection(types.WeeklyItemsCollection)
	require.NoError(t, err)

	w := &types.WeeklyItem{WeekKey: "2026-W10", EntityID: "entity-1", Day: types.DayMonday}
	id, err := items.Put(w)
	require.NoError(t, err)
	assert.Equal(t, types.WeeklyItemID("2026-W10", "entity-1"), id)
}

func TestWhere(t *testing.T) {
	s := openTestStore(t)
	positions, err := s.Collection(types.PositionsCollection)
	require.NoError(t, err)

	for i, entity := range []string{"entity-a", "entity-b", "entity-c"} {
		p := &types.Position{
			EntityID:  entity,
			BoardID:   "board-1",
			Context:   types.ContextBoard,
			RowID:     "row-1",
			ColumnKey: "todo",
			Order:     2 - i, // reverse insertion order
		}
		_, err := positions.Put(p)
		require.NoError(t, err)
	}

	recs, err := positions.Where("boardId", "board-1")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// Ordered by order value, not insertion.
	assert.Equal(t, "entity-c", recs[0].(*types.Position).EntityID)
	assert.Equal(t, "entity-a", recs[2].(*types.Position).EntityID)

	_, err = positions.Where("title", "x")
	assert.ErrorIs(t, err, types.ErrInvalidFilter)

	recs, err = positions.Where("boardId", "board-none")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestBulkPutAtomic(t *testing.T) {
	s := openTestStore(t)
	entities, err := s.Collection(types.EntitiesCollection)
	require.NoError(t, err)

	batch := []any{
		&types.Entity{ID: "entity-1", Type: types.EntityTask, Title: "A"},
		&types.Board{ID: "not-an-entity"},
	}
	require.Error(t, entities.BulkPut(batch))

	recs, err := entities.All()
	require.NoError(t, err)
	assert.Empty(t, recs, "failed bulk put writes nothing")
}

func TestTransactionCommitAndRollback(t *testing.T) {
	s := openTestStore(t)
	declared := []string{types.EntitiesCollection, types.BoardsCollection}

	err := s.Transaction(types.TxReadWrite, declared, func(tx types.Tx) error {
		entities, err := tx.Collection(types.EntitiesCollection)
		if err != nil {
			return err
		}
		if _, err := entities.Put(&types.Entity{ID: "entity-1", Type: types.EntityTask, Title: "A"}); err != nil {
			return err
		}
		boards, err := tx.Collection(types.BoardsCollection)
		if err != nil {
			return err
		}
		_, err = boards.Put(&types.Board{ID: "board-1", Name: "Main"})
		return err
	})
	require.NoError(t, err)

	entities, err := s.Collection(types.EntitiesCollection)
	require.NoError(t, err)
	_, err = entities.Get("entity-1")
	require.NoError(t, err)

	// fn error rolls every write back.
	sentinel := assert.AnError
	err = s.Transaction(types.TxReadWrite, declared, func(tx types.Tx) error {
		ents, err := tx.Collection(types.EntitiesCollection)
		if err != nil {
			return err
		}
		if _, err := ents.Put(&types.Entity{ID: "entity-2", Type: types.EntityTask, Title: "B"}); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	_, err = entities.Get("entity-2")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestTransactionUndeclaredCollection(t *testing.T) {
	s := openTestStore(t)
	err := s.Transaction(types.TxReadWrite, []string{types.EntitiesCollection}, func(tx types.Tx) error {
		_, err := tx.Collection(types.BoardsCollection)
		return err
	})
	assert.ErrorIs(t, err, types.ErrCollectionNotFound)
}

func TestReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	s := NewStore()
	require.NoError(t, s.Open(cfg))
	tags, err := s.Collection(types.TagsCollection)
	require.NoError(t, err)
	_, err = tags.Put(&types.Tag{ID: "tag-1", Name: "urgent"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2 := NewStore()
	require.NoError(t, s2.Open(cfg))
	defer s2.Close()
	tags, err = s2.Collection(types.TagsCollection)
	require.NoError(t, err)
	rec, err := tags.Get("tag-1")
	require.NoError(t, err)
	assert.Equal(t, "urgent", rec.(*types.Tag).Name)
}
