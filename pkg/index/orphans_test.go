package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n7apollo/gridflow/pkg/types"
)

func TestFindOrphans(t *testing.T) {
	ix, store := newTestIndex(t)
	seedBoard(t, store, "b1")
	seedEntity(t, store, "placed")
	seedEntity(t, store, "planned")
	seedEntity(t, store, "collected")
	seedEntity(t, store, "lost")
	seed(t, store, types.CollectionsCollection, &types.Collection{ID: "col1", Name: "Inbox"})

	_, err := ix.SetPosition("placed", "b1", types.ContextBoard, "r1", "todo", 0)
	require.NoError(t, err)
	_, err = ix.SetWeeklyItem("2026-W10", "planned", types.DayMonday, 0)
	require.NoError(t, err)
	_, err = ix.Link("collected", "col1", types.RelCollectionMember)
	require.NoError(t, err)

	orphans, err := ix.FindOrphans()
	require.NoError(t, err)
	require.Len(t, orphans, 1, "collection membership counts as placement")
	assert.Equal(t, "lost", orphans[0].ID)
}

func TestRecoverConverges(t *testing.T) {
	ix, store := newTestIndex(t)
	seedBoard(t, store, "b1")
	seedEntity(t, store, "placed")
	seedEntity(t, store, "lost-1")
	seedEntity(t, store, "lost-2")

	// An existing occupant of the recovery cell; recovered entities append
	// after it instead of colliding.
	_, err := ix.SetPosition("placed", "b1", types.ContextBoard, "r1", "todo", 0)
	require.NoError(t, err)

	report, err := ix.Recover("b1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.RecoveredCount)
	assert.Equal(t, "b1", report.PlacementLocation.BoardID)
	assert.Equal(t, "r1", report.PlacementLocation.RowID)
	assert.Equal(t, "todo", report.PlacementLocation.ColumnKey)

	got, err := ix.EntitiesAt("b1", types.ContextBoard, "r1", "todo")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "placed", got[0].ID)

	orders := make(map[string]int)
	for _, id := range []string{"lost-1", "lost-2"} {
		pos, err := ix.GetPosition(id, "b1", types.ContextBoard)
		require.NoError(t, err)
		orders[id] = pos.Order
	}
	assert.Equal(t, map[string]int{"lost-1": 1, "lost-2": 2}, orders)

	again, err := ix.Recover("b1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.RecoveredCount, "second run finds nothing to move")
}

func TestRecoverNeedsPlacement(t *testing.T) {
	ix, store := newTestIndex(t)
	seed(t, store, types.BoardsCollection, &types.Board{ID: "bare", Name: "Bare"})
	seedEntity(t, store, "lost")

	_, err := ix.Recover("bare")
	assert.ErrorIs(t, err, types.ErrNoPlacement)

	_, err = ix.Recover("ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
