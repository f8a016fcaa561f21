package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/n7apollo/gridflow/pkg/types"
)

const tagColumns = "tag_id, name, color, created_at"

func getTag(q querier, id string) (*types.Tag, error) {
	row := q.QueryRow("SELECT "+tagColumns+" FROM tags WHERE tag_id = ?", id)
	tg, err := scanTag(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting tag %s: %w", id, err)
	}
	return tg, nil
}

func putTag(q querier, record any) (string, error) {
	tg, ok := record.(*types.Tag)
	if !ok {
		return "", types.ErrInvalidData
	}
	if tg.Name == "" {
		return "", fmt.Errorf("%w: tag name must not be empty", types.ErrInvalidData)
	}

	if tg.ID == "" {
		tg.ID = newUUID()
	}
	if tg.CreatedAt.IsZero() {
		tg.CreatedAt = time.Now().UTC()
	}

	_, err := q.Exec(`INSERT INTO tags (`+tagColumns+`)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tag_id) DO UPDATE SET
			name = excluded.name, color = excluded.color,
			created_at = excluded.created_at`,
		tg.ID, tg.Name, tg.Color, formatTime(tg.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("persisting tag %s: %w", tg.ID, err)
	}
	return tg.ID, nil
}

var tagFilterColumns = map[string]string{
	"name": "name",
}

func whereTags(q querier, field string, value any) ([]any, error) {
	col, ok := tagFilterColumns[field]
	if !ok {
		return nil, types.ErrInvalidFilter
	}
	val, err := stringFilter(value)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query("SELECT "+tagColumns+" FROM tags WHERE "+col+" = ? ORDER BY created_at, rowid", val)
	if err != nil {
		return nil, fmt.Errorf("fetching tags: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		tg, err := scanTag(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating tag: %w", err)
		}
		results = append(results, tg)
	}
	return results, rows.Err()
}

// allTags returns every tag row, ordered by creation time.
func allTags(q querier) ([]*types.Tag, error) {
	rows, err := q.Query("SELECT " + tagColumns + " FROM tags ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("fetching tags: %w", err)
	}
	defer rows.Close()

	var results []*types.Tag
	for rows.Next() {
		tg, err := scanTag(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating tag: %w", err)
		}
		results = append(results, tg)
	}
	return results, rows.Err()
}

func scanTag(scan func(dest ...any) error) (*types.Tag, error) {
	var tg types.Tag
	var createdAt string
	if err := scan(&tg.ID, &tg.Name, &tg.Color, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if tg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &tg, nil
}
