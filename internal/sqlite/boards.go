package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/n7apollo/gridflow/pkg/types"
)

const boardColumns = "board_id, name, groups, rows, columns, next_row_id, next_column_id, next_group_id, created_at, updated_at"

func getBoard(q querier, id string) (*types.Board, error) {
	row := q.QueryRow("SELECT "+boardColumns+" FROM boards WHERE board_id = ?", id)
	b, err := scanBoard(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting board %s: %w", id, err)
	}
	return b, nil
}

func putBoard(q querier, record any) (string, error) {
	b, ok := record.(*types.Board)
	if !ok {
		return "", types.ErrInvalidData
	}
	if b.Name == "" {
		return "", fmt.Errorf("%w: board name must not be empty", types.ErrInvalidData)
	}

	now := time.Now().UTC()
	if b.ID == "" {
		b.ID = newUUID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}

	groups, err := encodeJSON(orEmptyGroups(b.Groups))
	if err != nil {
		return "", err
	}
	rows, err := encodeJSON(orEmptyRows(b.Rows))
	if err != nil {
		return "", err
	}
	columns, err := encodeJSON(orEmptyColumns(b.Columns))
	if err != nil {
		return "", err
	}

	_, err = q.Exec(`INSERT INTO boards (`+boardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (board_id) DO UPDATE SET
			name = excluded.name, groups = excluded.groups,
			rows = excluded.rows, columns = excluded.columns,
			next_row_id = excluded.next_row_id,
			next_column_id = excluded.next_column_id,
			next_group_id = excluded.next_group_id,
			created_at = excluded.created_at, updated_at = excluded.updated_at`,
		b.ID, b.Name, groups, rows, columns,
		b.NextRowID, b.NextColumnID, b.NextGroupID,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		return "", fmt.Errorf("persisting board %s: %w", b.ID, err)
	}
	return b.ID, nil
}

var boardFilterColumns = map[string]string{
	"name": "name",
}

func whereBoards(q querier, field string, value any) ([]any, error) {
	col, ok := boardFilterColumns[field]
	if !ok {
		return nil, types.ErrInvalidFilter
	}
	val, err := stringFilter(value)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query("SELECT "+boardColumns+" FROM boards WHERE "+col+" = ? ORDER BY created_at, rowid", val)
	if err != nil {
		return nil, fmt.Errorf("fetching boards: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		b, err := scanBoard(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating board: %w", err)
		}
		results = append(results, b)
	}
	return results, rows.Err()
}

// allBoards returns every board row, ordered by creation time.
func allBoards(q querier) ([]*types.Board, error) {
	rows, err := q.Query("SELECT " + boardColumns + " FROM boards ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("fetching boards: %w", err)
	}
	defer rows.Close()

	var results []*types.Board
	for rows.Next() {
		b, err := scanBoard(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating board: %w", err)
		}
		results = append(results, b)
	}
	return results, rows.Err()
}

func scanBoard(scan func(dest ...any) error) (*types.Board, error) {
	var b types.Board
	var groups, rowsJSON, columns, createdAt, updatedAt string
	if err := scan(&b.ID, &b.Name, &groups, &rowsJSON, &columns,
		&b.NextRowID, &b.NextColumnID, &b.NextGroupID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := decodeJSON(groups, &b.Groups); err != nil {
		return nil, err
	}
	if err := decodeJSON(rowsJSON, &b.Rows); err != nil {
		return nil, err
	}
	if err := decodeJSON(columns, &b.Columns); err != nil {
		return nil, err
	}
	b.Groups = orEmptyGroups(b.Groups)
	b.Rows = orEmptyRows(b.Rows)
	b.Columns = orEmptyColumns(b.Columns)

	var err error
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func orEmptyGroups(v []types.Group) []types.Group {
	if v == nil {
		return []types.Group{}
	}
	return v
}

func orEmptyRows(v []types.Row) []types.Row {
	if v == nil {
		return []types.Row{}
	}
	return v
}

func orEmptyColumns(v []types.Column) []types.Column {
	if v == nil {
		return []types.Column{}
	}
	return v
}
