package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n7apollo/gridflow/pkg/types"
)

var testClock = func() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func testValidator() *Validator {
	return NewValidator(WithClock(testClock), WithValidatorIDGen(NewSeqIDGen()))
}

// boardFixture returns a minimal valid board.
func boardFixture(id string) *types.Board {
	return &types.Board{
		ID:      id,
		Name:    "Main",
		Rows:    []types.Row{{ID: "r1", Name: "Row 1"}},
		Columns: []types.Column{{ID: "c1", Key: "todo", Name: "To Do"}},
	}
}

func TestValidateCleanSnapshot(t *testing.T) {
	s := types.NewSnapshot()
	s.Entities["e1"] = &types.Entity{ID: "e1", Type: types.EntityTask, Title: "A", CreatedAt: testClock(), UpdatedAt: testClock()}
	s.Boards["b1"] = boardFixture("b1")
	s.Boards["b1"].CreatedAt = testClock()
	pos := &types.Position{EntityID: "e1", BoardID: "b1", Context: types.ContextBoard, RowID: "r1", ColumnKey: "todo"}
	pos.ID = pos.Key()
	s.EntityPositions = append(s.EntityPositions, pos)

	result := testValidator().Validate(s)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.Fixes)
	assert.Equal(t, 1, result.Stats.Entities)
	assert.Equal(t, 1, result.Stats.Positions)
}

func TestValidateDropsDanglingPosition(t *testing.T) {
	s := types.NewSnapshot()
	s.Boards["b1"] = boardFixture("b1")
	pos := &types.Position{EntityID: "missing", BoardID: "b1", Context: types.ContextBoard, RowID: "r1", ColumnKey: "todo"}
	pos.ID = pos.Key()
	s.EntityPositions = append(s.EntityPositions, pos)

	result := testValidator().Validate(s)
	assert.True(t, result.IsValid, "a dangling position is a warning, not an error")
	assert.Empty(t, s.EntityPositions)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, types.PositionsCollection, result.Warnings[0].Collection)
}

func TestValidateDropsPositionWithoutBoard(t *testing.T) {
	s := types.NewSnapshot()
	s.Entities["e1"] = &types.Entity{ID: "e1", Type: types.EntityTask, Title: "A", CreatedAt: testClock(), UpdatedAt: testClock()}
	s.EntityPositions = append(s.EntityPositions,
		&types.Position{EntityID: "e1", Context: types.ContextWeekly},
		&types.Position{EntityID: "e1", Context: types.ContextBoard})

	result := testValidator().Validate(s)
	assert.True(t, result.IsValid, "an empty board id is a warning, not an error")
	assert.Empty(t, s.EntityPositions, "no context may carry a position without a board id")
	assert.Len(t, result.Warnings, 2)
}

func TestValidateDefaultsAndCoercions(t *testing.T) {
	s := types.NewSnapshot()
	s.Entities["e1"] = &types.Entity{ID: "e1", Type: "widget", Title: "A", Priority: "urgent"}
	result := testValidator().Validate(s)

	assert.True(t, result.IsValid)
	e := s.Entities["e1"]
	assert.Equal(t, types.EntityTask, e.Type)
	assert.Empty(t, e.Priority)
	assert.Equal(t, testClock(), e.CreatedAt)
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)
	assert.NotEmpty(t, result.Fixes)
}

func TestValidateAlignsEntityIDWithKey(t *testing.T) {
	s := types.NewSnapshot()
	s.Entities["e1"] = &types.Entity{ID: "stale", Type: types.EntityTask, Title: "A"}
	result := testValidator().Validate(s)

	assert.True(t, result.IsValid)
	assert.Equal(t, "e1", s.Entities["e1"].ID)
	require.NotEmpty(t, result.Fixes)
}

func TestValidateDropsDanglingEntityRefs(t *testing.T) {
	s := types.NewSnapshot()
	s.Tags = append(s.Tags, &types.Tag{ID: "t1", Name: "urgent", CreatedAt: testClock()})
	s.Entities["e1"] = &types.Entity{
		ID: "e1", Type: types.EntityTask, Title: "A",
		Tags:      []string{"t1", "t-missing"},
		People:    []string{"p-missing"},
		CreatedAt: testClock(), UpdatedAt: testClock(),
	}

	result := testValidator().Validate(s)
	assert.True(t, result.IsValid)
	assert.Equal(t, []string{"t1"}, s.Entities["e1"].Tags)
	assert.Empty(t, s.Entities["e1"].People)
	assert.Len(t, result.Warnings, 2)
}

func TestValidateBoardStructure(t *testing.T) {
	s := types.NewSnapshot()
	b := &types.Board{
		ID:   "b1",
		Name: "Main",
		Rows: []types.Row{
			{ID: "r1", GroupID: "g-missing"},
			{ID: "r1", Name: "duplicate"},
		},
		Columns:   []types.Column{{ID: "c1", Key: "todo"}, {ID: "c2", Key: "todo"}},
		CreatedAt: testClock(),
	}
	s.Boards["b1"] = b

	result := testValidator().Validate(s)
	assert.True(t, result.IsValid)
	require.Len(t, b.Rows, 1, "duplicate row id dropped")
	assert.Empty(t, b.Rows[0].GroupID, "dangling group reference cleared")
	require.Len(t, b.Columns, 1, "duplicate column key dropped")
}

func TestValidateWeeklyItems(t *testing.T) {
	s := types.NewSnapshot()
	s.Entities["e1"] = &types.Entity{ID: "e1", Type: types.EntityTask, Title: "A", CreatedAt: testClock(), UpdatedAt: testClock()}
	s.WeeklyPlans["2026-W10"] = &types.WeeklyPlan{Items: []*types.WeeklyItem{
		{ID: "x", WeekKey: "wrong", EntityID: "e1", Day: types.DayMonday},
		{WeekKey: "2026-W10", EntityID: "e-missing", Day: types.DayTuesday},
		{WeekKey: "2026-W10", EntityID: "e1", Day: "someday"},
	}}

	result := testValidator().Validate(s)
	assert.True(t, result.IsValid)
	items := s.WeeklyPlans["2026-W10"].Items
	require.Len(t, items, 1)
	assert.Equal(t, "2026-W10", items[0].WeekKey)
	assert.Equal(t, types.WeeklyItemID("2026-W10", "e1"), items[0].ID)
	assert.Equal(t, 1, result.Stats.WeeklyItems)
	assert.Len(t, result.Warnings, 2)
}

func TestValidateCollectionMembership(t *testing.T) {
	s := types.NewSnapshot()
	s.Entities["e1"] = &types.Entity{ID: "e1", Type: types.EntityTask, Title: "A", CreatedAt: testClock(), UpdatedAt: testClock()}
	s.Collections = append(s.Collections, &types.Collection{
		Name:      "Inbox",
		EntityIDs: []string{"e1", "e-missing"},
		CreatedAt: testClock(),
	})

	result := testValidator().Validate(s)
	assert.True(t, result.IsValid)
	c := s.Collections[0]
	assert.NotEmpty(t, c.ID, "missing id minted")
	assert.Equal(t, []string{"e1"}, c.EntityIDs)
}

func TestValidateRelationships(t *testing.T) {
	s := types.NewSnapshot()
	s.Entities["a"] = &types.Entity{ID: "a", Type: types.EntityTask, Title: "A", CreatedAt: testClock(), UpdatedAt: testClock()}
	s.Entities["b"] = &types.Entity{ID: "b", Type: types.EntityTask, Title: "B", CreatedAt: testClock(), UpdatedAt: testClock()}
	s.Relationships = []*types.Relationship{
		{ID: "rel-a-b", EntityID: "a", RelatedID: "b", Type: types.RelRelated, CreatedAt: testClock()},
		{ID: "rel-dup", EntityID: "b", RelatedID: "a", Type: types.RelRelated, CreatedAt: testClock()},
		{ID: "rel-ghost", EntityID: "a", RelatedID: "ghost", Type: types.RelRelated, CreatedAt: testClock()},
		{ID: "rel-derived", EntityID: "a", RelatedID: "t1", Type: types.RelLabeled, CreatedAt: testClock()},
	}

	result := testValidator().Validate(s)
	assert.True(t, result.IsValid)
	require.Len(t, s.Relationships, 1, "only the unique related pair survives")
	assert.Equal(t, "rel-a-b", s.Relationships[0].ID)
	assert.Len(t, result.Warnings, 3)
}

func TestValidateNilRecordIsError(t *testing.T) {
	s := types.NewSnapshot()
	s.Entities["e1"] = nil

	result := testValidator().Validate(s)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
}
