package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/n7apollo/gridflow/pkg/types"
)

const personColumns = "person_id, name, email, last_interaction, created_at, updated_at"

func getPerson(q querier, id string) (*types.Person, error) {
	row := q.QueryRow("SELECT "+personColumns+" FROM people WHERE person_id = ?", id)
	p, err := scanPerson(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting person %s: %w", id, err)
	}
	return p, nil
}

func putPerson(q querier, record any) (string, error) {
	p, ok := record.(*types.Person)
	if !ok {
		return "", types.ErrInvalidData
	}
	if p.Name == "" {
		return "", fmt.Errorf("%w: person name must not be empty", types.ErrInvalidData)
	}

	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = newUUID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	var lastInteraction any
	if !p.LastInteraction.IsZero() {
		lastInteraction = formatTime(p.LastInteraction)
	}

	_, err := q.Exec(`INSERT INTO people (`+personColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (person_id) DO UPDATE SET
			name = excluded.name, email = excluded.email,
			last_interaction = excluded.last_interaction,
			created_at = excluded.created_at, updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Email, lastInteraction,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return "", fmt.Errorf("persisting person %s: %w", p.ID, err)
	}
	return p.ID, nil
}

var personFilterColumns = map[string]string{
	"name":  "name",
	"email": "email",
}

func wherePeople(q querier, field string, value any) ([]any, error) {
	col, ok := personFilterColumns[field]
	if !ok {
		return nil, types.ErrInvalidFilter
	}
	val, err := stringFilter(value)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query("SELECT "+personColumns+" FROM people WHERE "+col+" = ? ORDER BY created_at, rowid", val)
	if err != nil {
		return nil, fmt.Errorf("fetching people: %w", err)
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		p, err := scanPerson(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating person: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// allPeople returns every person row, ordered by creation time.
func allPeople(q querier) ([]*types.Person, error) {
	rows, err := q.Query("SELECT " + personColumns + " FROM people ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("fetching people: %w", err)
	}
	defer rows.Close()

	var results []*types.Person
	for rows.Next() {
		p, err := scanPerson(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating person: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func scanPerson(scan func(dest ...any) error) (*types.Person, error) {
	var p types.Person
	var lastInteraction sql.NullString
	var createdAt, updatedAt string
	if err := scan(&p.ID, &p.Name, &p.Email, &lastInteraction, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if lastInteraction.Valid {
		if p.LastInteraction, err = parseTime(lastInteraction.String); err != nil {
			return nil, err
		}
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
