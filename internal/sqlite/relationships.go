package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/n7apollo/gridflow/pkg/types"
)

const relationshipColumns = "relationship_id, entity_id, related_id, relationship_type, created_at"

func getRelationship(q querier, id string) (*types.Relationship, error) {
	row := q.QueryRow("SELECT "+relationshipColumns+" FROM relationships WHERE relationship_id = ?", id)
	r, err := scanRelationship(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting relationship %s: %w", id, err)
	}
	return r, nil
}

func putRelationship(q querier, record any) (string, error) {
	r, ok := record.(*types.Relationship)
	if !ok {
		return "", types.ErrInvalidData
	}
	if r.EntityID == "" || r.RelatedID == "" {
		return "", fmt.Errorf("%w: relationship requires entityId and relatedId", types.ErrInvalidData)
	}
	if !types.ValidRelationshipType(r.Type) {
		return "", fmt.Errorf("%w: unknown relationship type %q", types.ErrInvalidData, r.Type)
	}

	if r.ID == "" {
		r.ID = newUUID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := q.Exec(`INSERT INTO relationships (`+relationshipColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (relationship_id) DO UPDATE SET
			entity_id = excluded.entity_id, related_id = excluded.related_id,
			relationship_type = excluded.relationship_type,
			created_at = excluded.created_at`,
		r.ID, r.EntityID, r.RelatedID, r.Type, formatTime(r.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("persisting relationship %s: %w", r.ID, err)
	}
	return r.ID, nil
}

var relationshipFilterColumns = map[string]string{
	"entityId":         "entity_id",
	"relatedId":        "related_id",
	"relationshipType": "relationship_type",
}

func whereRelationships(q querier, field string, value any) ([]any, error) {
	col, ok := relationshipFilterColumns[field]
	if !ok {
		return nil, types.ErrInvalidFilter
	}
	val, err := stringFilter(value)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query("SELECT "+relationshipColumns+" FROM relationships WHERE "+col+" = ? ORDER BY created_at, rowid", val)
	if err != nil {
		return nil, fmt.Errorf("fetching relationships: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		r, err := scanRelationship(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating relationship: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// allRelationships returns every relationship row in insertion order.
func allRelationships(q querier) ([]*types.Relationship, error) {
	rows, err := q.Query("SELECT " + relationshipColumns + " FROM relationships ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("fetching relationships: %w", err)
	}
	defer rows.Close()

	var results []*types.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating relationship: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanRelationship(scan func(dest ...any) error) (*types.Relationship, error) {
	var r types.Relationship
	var createdAt string
	if err := scan(&r.ID, &r.EntityID, &r.RelatedID, &r.Type, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}
