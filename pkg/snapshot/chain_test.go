package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n7apollo/gridflow/pkg/types"
)

func migrateJSON(t *testing.T, raw string) *MigrateResult {
	t.Helper()
	result, err := NewChain().Migrate([]byte(raw))
	require.NoError(t, err)
	return result
}

func TestMigrateV1Scenario(t *testing.T) {
	raw := `{
		"groups":  [{"id":1,"name":"G"}],
		"rows":    [{"id":1,"groupId":1,"cards":{"todo":[{"id":1,"title":"X"}]}}],
		"columns": [{"id":1,"key":"todo","name":"To Do"}]
	}`
	result := migrateJSON(t, raw)

	assert.Equal(t, types.SchemaV1, result.DetectedVersion)
	assert.Equal(t, 6, result.Steps)
	assert.Empty(t, result.Warnings)

	s := result.Snapshot
	assert.Equal(t, types.CurrentSchema, s.Version)

	require.Len(t, s.Entities, 1)
	e := s.Entities["entity-1"]
	require.NotNil(t, e)
	assert.Equal(t, "X", e.Title)
	assert.Equal(t, types.EntityTask, e.Type)

	require.Len(t, s.Boards, 1)
	b := s.Boards["board-1"]
	require.NotNil(t, b)
	require.Len(t, b.Rows, 1)
	assert.Equal(t, "1", b.Rows[0].ID)
	assert.Equal(t, "1", b.Rows[0].GroupID)
	require.Len(t, b.Columns, 1)
	assert.Equal(t, "todo", b.Columns[0].Key)
	require.Len(t, b.Groups, 1)
	assert.Equal(t, "G", b.Groups[0].Name)

	require.Len(t, s.EntityPositions, 1)
	p := s.EntityPositions[0]
	assert.Equal(t, "entity-1", p.EntityID)
	assert.Equal(t, "board-1", p.BoardID)
	assert.Equal(t, types.ContextBoard, p.Context)
	assert.Equal(t, "1", p.RowID)
	assert.Equal(t, "todo", p.ColumnKey)
	assert.Equal(t, 0, p.Order)
	assert.Equal(t, p.Key(), p.ID)
}

func TestMigrateIdempotent(t *testing.T) {
	raw := `{
		"groups":  [{"id":1,"name":"G"}],
		"rows":    [{"id":1,"groupId":1,"cards":{"todo":[{"id":1,"title":"X"},{"id":2,"title":"Y"}]}}],
		"columns": [{"id":1,"key":"todo","name":"To Do"}]
	}`
	first := migrateJSON(t, raw)

	encoded, err := Encode(first.Snapshot)
	require.NoError(t, err)

	second := migrateJSON(t, string(encoded))
	assert.Equal(t, types.SchemaV7, second.DetectedVersion)
	assert.Equal(t, 0, second.Steps)
	assert.Equal(t, first.Snapshot, second.Snapshot)
}

func TestMigrateV4RemapsWeeklyReferences(t *testing.T) {
	raw := `{
		"boards": {"b1": {
			"name":    "Main",
			"rows":    [{"id":"r1","cards":{"todo":[{"id":9,"title":"planned"}]}}],
			"columns": [{"id":"c1","key":"todo","name":"To Do"}]
		}},
		"people": [], "tags": [],
		"weeklyPlans": {"2026-W01": {"monday": [9], "friday": [404]}}
	}`
	result := migrateJSON(t, raw)

	assert.Equal(t, types.SchemaV4, result.DetectedVersion)
	require.Len(t, result.Snapshot.Entities, 1)

	plan := result.Snapshot.WeeklyPlans["2026-W01"]
	require.NotNil(t, plan)
	require.Len(t, plan.Items, 1, "reference to unknown card 404 is dropped")
	item := plan.Items[0]
	assert.Equal(t, "entity-1", item.EntityID)
	assert.Equal(t, types.DayMonday, item.Day)
	assert.Equal(t, item.Key(), item.ID)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "404")
}

func TestMigrateDropsPlacementInUnknownColumn(t *testing.T) {
	raw := `{
		"boards": {"b1": {
			"name":    "Main",
			"rows":    [{"id":"r1","cards":{"ghost":[{"id":1,"title":"stray"}]}}],
			"columns": [{"id":"c1","key":"todo","name":"To Do"}]
		}},
		"people": [], "tags": []
	}`
	result := migrateJSON(t, raw)

	// The entity survives; only its placement is gone.
	require.Len(t, result.Snapshot.Entities, 1)
	assert.Empty(t, result.Snapshot.EntityPositions)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0].Message, "ghost")
}

func TestMigrateV6ConvertsIndexAddressing(t *testing.T) {
	raw := `{
		"entities": {"e1": {"id":"e1","type":"task","title":"A"}},
		"boards": {"b1": {
			"name":    "Main",
			"rows":    [{"id":"r1"},{"id":"r2"}],
			"columns": [{"id":"c1","key":"todo","name":"To Do"},{"id":"c2","key":"done","name":"Done"}]
		}},
		"entityPositions": [
			{"entityId":"e1","boardId":"b1","context":"board","row":1,"column":0,"order":3},
			{"entityId":"e1","boardId":"b1","context":"board","row":9,"column":0,"order":0}
		],
		"collections": [], "people": [], "tags": [], "weeklyPlans": {}
	}`
	result := migrateJSON(t, raw)

	assert.Equal(t, types.SchemaV6, result.DetectedVersion)
	require.Len(t, result.Snapshot.EntityPositions, 1, "out-of-range row index is dropped")
	p := result.Snapshot.EntityPositions[0]
	assert.Equal(t, "r2", p.RowID)
	assert.Equal(t, "todo", p.ColumnKey)
	assert.Equal(t, 3, p.Order)
	require.Len(t, result.Warnings, 1)
}

func TestMigrateRejectsUnparsableInput(t *testing.T) {
	_, err := NewChain().Migrate([]byte("not json"))
	require.Error(t, err)
}

func TestMigrateNumericAndStringIDs(t *testing.T) {
	// Pre-5.0 snapshots used numeric IDs; both forms must decode.
	raw := `{
		"boards": {"b1": {
			"name":    "Main",
			"rows":    [{"id":7,"cards":{"todo":[{"id":"card-a","title":"A","done":true,"text":"legacy body"}]}}],
			"columns": [{"id":"c1","key":"todo","name":"To Do"}]
		}}
	}`
	result := migrateJSON(t, raw)

	require.Len(t, result.Snapshot.Entities, 1)
	e := result.Snapshot.Entities["entity-1"]
	require.NotNil(t, e)
	assert.True(t, e.Completed, "pre-3.0 done flag carries over")
	assert.Equal(t, "legacy body", e.Content, "pre-3.0 text field carries over")

	b := result.Snapshot.Boards["b1"]
	require.NotNil(t, b)
	require.Len(t, b.Rows, 1)
	assert.Equal(t, "7", b.Rows[0].ID)
}
