package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/n7apollo/gridflow/pkg/types"
)

const positionColumns = "position_id, entity_id, board_id, context, row_id, column_key, ord"

func getPosition(q querier, id string) (*types.Position, error) {
	row := q.QueryRow("SELECT "+positionColumns+" FROM positions WHERE position_id = ?", id)
	p, err := scanPosition(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting position %s: %w", id, err)
	}
	return p, nil
}

// putPosition upserts a position. The record ID is always the derived
// (entityId, boardId, context) key, so moving an entity overwrites its row
// for that context rather than leaving a stale one behind.
func putPosition(q querier, record any) (string, error) {
	p, ok := record.(*types.Position)
	if !ok {
		return "", types.ErrInvalidData
	}
	if p.EntityID == "" || p.BoardID == "" {
		return "", fmt.Errorf("%w: position requires entityId and boardId", types.ErrInvalidData)
	}
	if !types.ValidContext(p.Context) {
		return "", fmt.Errorf("%w: unknown context %q", types.ErrInvalidData, p.Context)
	}
	p.ID = p.Key()

	_, err := q.Exec(`INSERT INTO positions (`+positionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (position_id) DO UPDATE SET
			row_id = excluded.row_id, column_key = excluded.column_key,
			ord = excluded.ord`,
		p.ID, p.EntityID, p.BoardID, string(p.Context), p.RowID, p.ColumnKey, p.Order)
	if err != nil {
		return "", fmt.Errorf("persisting position %s: %w", p.ID, err)
	}
	return p.ID, nil
}

var positionFilterColumns = map[string]string{
	"entityId":  "entity_id",
	"boardId":   "board_id",
	"context":   "context",
	"rowId":     "row_id",
	"columnKey": "column_key",
}

// wherePositions queries positions by an indexed field. Results are ordered
// by ord then rowid, so ties keep insertion order.
func wherePositions(q querier, field string, value any) ([]any, error) {
	col, ok := positionFilterColumns[field]
	if !ok {
		return nil, types.ErrInvalidFilter
	}
	val, err := stringFilter(value)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query("SELECT "+positionColumns+" FROM positions WHERE "+col+" = ? ORDER BY ord, rowid", val)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		p, err := scanPosition(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating position: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// allPositions returns every position row in stable cell order.
func allPositions(q querier) ([]*types.Position, error) {
	rows, err := q.Query("SELECT " + positionColumns + " FROM positions ORDER BY board_id, context, row_id, column_key, ord, rowid")
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	defer rows.Close()

	var results []*types.Position
	for rows.Next() {
		p, err := scanPosition(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating position: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func scanPosition(scan func(dest ...any) error) (*types.Position, error) {
	var p types.Position
	var context string
	if err := scan(&p.ID, &p.EntityID, &p.BoardID, &context, &p.RowID, &p.ColumnKey, &p.Order); err != nil {
		return nil, err
	}
	p.Context = types.Context(context)
	return &p, nil
}
