package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/n7apollo/gridflow/pkg/types"
)

const weeklyColumns = "item_id, week_key, entity_id, day, ord"

func getWeeklyItem(q querier, id string) (*types.WeeklyItem, error) {
	row := q.QueryRow("SELECT "+weeklyColumns+" FROM weekly_items WHERE item_id = ?", id)
	w, err := scanWeeklyItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting weekly item %s: %w", id, err)
	}
	return w, nil
}

// putWeeklyItem upserts a weekly item keyed by the derived
// (weekKey, entityId) pair; an entity appears at most once per week.
func putWeeklyItem(q querier, record any) (string, error) {
	w, ok := record.(*types.WeeklyItem)
	if !ok {
		return "", types.ErrInvalidData
	}
	if w.WeekKey == "" || w.EntityID == "" {
		return "", fmt.Errorf("%w: weekly item requires weekKey and entityId", types.ErrInvalidData)
	}
	if !types.ValidDay(w.Day) {
		return "", fmt.Errorf("%w: unknown day %q", types.ErrInvalidData, w.Day)
	}
	w.ID = w.Key()

	_, err := q.Exec(`INSERT INTO weekly_items (`+weeklyColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			day = excluded.day, ord = excluded.ord`,
		w.ID, w.WeekKey, w.EntityID, w.Day, w.Order)
	if err != nil {
		return "", fmt.Errorf("persisting weekly item %s: %w", w.ID, err)
	}
	return w.ID, nil
}

var weeklyFilterColumns = map[string]string{
	"weekKey":  "week_key",
	"entityId": "entity_id",
	"day":      "day",
}

func whereWeeklyItems(q querier, field string, value any) ([]any, error) {
	col, ok := weeklyFilterColumns[field]
	if !ok {
		return nil, types.ErrInvalidFilter
	}
	val, err := stringFilter(value)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query("SELECT "+weeklyColumns+" FROM weekly_items WHERE "+col+" = ? ORDER BY ord, rowid", val)
	if err != nil {
		return nil, fmt.Errorf("fetching weekly items: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		w, err := scanWeeklyItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating weekly item: %w", err)
		}
		results = append(results, w)
	}
	return results, rows.Err()
}

// allWeeklyItems returns every weekly item row grouped by week.
func allWeeklyItems(q querier) ([]*types.WeeklyItem, error) {
	rows, err := q.Query("SELECT " + weeklyColumns + " FROM weekly_items ORDER BY week_key, day, ord, rowid")
	if err != nil {
		return nil, fmt.Errorf("fetching weekly items: %w", err)
	}
	defer rows.Close()

	var results []*types.WeeklyItem
	for rows.Next() {
		w, err := scanWeeklyItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating weekly item: %w", err)
		}
		results = append(results, w)
	}
	return results, rows.Err()
}

func scanWeeklyItem(scan func(dest ...any) error) (*types.WeeklyItem, error) {
	var w types.WeeklyItem
	if err := scan(&w.ID, &w.WeekKey, &w.EntityID, &w.Day, &w.Order); err != nil {
		return nil, err
	}
	return &w, nil
}
