package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/n7apollo/gridflow/pkg/types"
)

const collectionColumns = "collection_id, name, description, entity_ids, created_at, updated_at"

func getCollection(q querier, id string) (*types.Collection, error) {
	row := q.QueryRow("SELECT "+collectionColumns+" FROM collections WHERE collection_id = ?", id)
	col, err := scanCollection(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", id, err)
	}
	return col, nil
}

func putCollection(q querier, record any) (string, error) {
	col, ok := record.(*types.Collection)
	if !ok {
		return "", types.ErrInvalidData
	}
	if col.Name == "" {
		return "", fmt.Errorf("%w: collection name must not be empty", types.ErrInvalidData)
	}

	now := time.Now().UTC()
	if col.ID == "" {
		col.ID = newUUID()
	}
	if col.CreatedAt.IsZero() {
		col.CreatedAt = now
	}
	if col.UpdatedAt.IsZero() {
		col.UpdatedAt = now
	}

	_, err := q.Exec(`INSERT INTO collections (`+collectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection_id) DO UPDATE SET
			name = excluded.name, description = excluded.description,
			entity_ids = excluded.entity_ids,
			created_at = excluded.created_at, updated_at = excluded.updated_at`,
		col.ID, col.Name, col.Description, encodeStrings(col.EntityIDs),
		formatTime(col.CreatedAt), formatTime(col.UpdatedAt))
	if err != nil {
		return "", fmt.Errorf("persisting collection %s: %w", col.ID, err)
	}
	return col.ID, nil
}

var collectionFilterColumns = map[string]string{
	"name": "name",
}

func whereCollections(q querier, field string, value any) ([]any, error) {
	colName, ok := collectionFilterColumns[field]
	if !ok {
		return nil, types.ErrInvalidFilter
	}
	val, err := stringFilter(value)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query("SELECT "+collectionColumns+" FROM collections WHERE "+colName+" = ? ORDER BY created_at, rowid", val)
	if err != nil {
		return nil, fmt.Errorf("fetching collections: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		col, err := scanCollection(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating collection: %w", err)
		}
		results = append(results, col)
	}
	return results, rows.Err()
}

// allCollections returns every collection row, ordered by creation time.
func allCollections(q querier) ([]*types.Collection, error) {
	rows, err := q.Query("SELECT " + collectionColumns + " FROM collections ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("fetching collections: %w", err)
	}
	defer rows.Close()

	var results []*types.Collection
	for rows.Next() {
		col, err := scanCollection(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating collection: %w", err)
		}
		results = append(results, col)
	}
	return results, rows.Err()
}

func scanCollection(scan func(dest ...any) error) (*types.Collection, error) {
	var col types.Collection
	var entityIDs, createdAt, updatedAt string
	if err := scan(&col.ID, &col.Name, &col.Description, &entityIDs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if col.EntityIDs, err = decodeStrings(entityIDs); err != nil {
		return nil, err
	}
	if col.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if col.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &col, nil
}
