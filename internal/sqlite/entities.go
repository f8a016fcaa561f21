package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/n7apollo/gridflow/pkg/types"
)

const entityColumns = "entity_id, type, title, content, completed, priority, due_date, tags, people, created_at, updated_at"

func getEntity(q querier, id string) (*types.Entity, error) {
	row := q.QueryRow("SELECT "+entityColumns+" FROM entities WHERE entity_id = ?", id)
	e, err := scanEntity(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting entity %s: %w", id, err)
	}
	return e, nil
}

func putEntity(q querier, record any) (string, error) {
	e, ok := record.(*types.Entity)
	if !ok {
		return "", types.ErrInvalidData
	}
	if !types.ValidEntityType(e.Type) {
		return "", fmt.Errorf("%w: unknown entity type %q", types.ErrInvalidData, e.Type)
	}

	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = newUUID()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}

	_, err := q.Exec(`INSERT INTO entities (`+entityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_id) DO UPDATE SET
			type = excluded.type, title = excluded.title,
			content = excluded.content, completed = excluded.completed,
			priority = excluded.priority, due_date = excluded.due_date,
			tags = excluded.tags, people = excluded.people,
			created_at = excluded.created_at, updated_at = excluded.updated_at`,
		e.ID, e.Type, e.Title, e.Content, boolToInt(e.Completed), e.Priority, e.DueDate,
		encodeStrings(e.Tags), encodeStrings(e.People),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return "", fmt.Errorf("persisting entity %s: %w", e.ID, err)
	}
	return e.ID, nil
}

// entityFilterColumns maps Where fields to entity columns.
var entityFilterColumns = map[string]string{
	"type": "type",
}

func whereEntities(q querier, field string, value any) ([]any, error) {
	col, ok := entityFilterColumns[field]
	if !ok {
		return nil, types.ErrInvalidFilter
	}
	val, err := stringFilter(value)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query("SELECT "+entityColumns+" FROM entities WHERE "+col+" = ? ORDER BY created_at, rowid", val)
	if err != nil {
		return nil, fmt.Errorf("fetching entities: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		e, err := scanEntity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating entity: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return results, nil
}

// allEntities returns every entity row, ordered by creation time.
func allEntities(q querier) ([]*types.Entity, error) {
	rows, err := q.Query("SELECT " + entityColumns + " FROM entities ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("fetching entities: %w", err)
	}
	defer rows.Close()

	var results []*types.Entity
	for rows.Next() {
		e, err := scanEntity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating entity: %w", err)
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// scanEntity hydrates one entity row via the given scan function.
func scanEntity(scan func(dest ...any) error) (*types.Entity, error) {
	var e types.Entity
	var completed int
	var tags, people, createdAt, updatedAt string
	if err := scan(&e.ID, &e.Type, &e.Title, &e.Content, &completed, &e.Priority,
		&e.DueDate, &tags, &people, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Completed = completed != 0

	var err error
	if e.Tags, err = decodeStrings(tags); err != nil {
		return nil, err
	}
	if e.People, err = decodeStrings(people); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
