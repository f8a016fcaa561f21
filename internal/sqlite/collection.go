package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/n7apollo/gridflow/pkg/types"
)

var _ types.Table = (*collection)(nil)

// collection implements types.Table for a single record kind. A
// collection is either store-bound (locks and checks open state per call)
// or tx-bound (q set, runs on the transaction that created it).
type collection struct {
	name  string
	store *Store
	q     querier
}

// reader runs fn with read access to the database.
func (c *collection) reader(fn func(q querier) error) error {
	if c.q != nil {
		return fn(c.q)
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if !c.store.open {
		return types.ErrStoreClosed
	}
	return fn(c.store.db)
}

// writer runs fn with exclusive write access to the database.
func (c *collection) writer(fn func(q querier) error) error {
	if c.q != nil {
		return fn(c.q)
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if !c.store.open {
		return types.ErrStoreClosed
	}
	return fn(c.store.db)
}

// collectionMeta maps collection names to their table and primary key.
var collectionMeta = map[string]struct{ table, pk string }{
	types.EntitiesCollection:      {"entities", "entity_id"},
	types.BoardsCollection:        {"boards", "board_id"},
	types.PeopleCollection:        {"people", "person_id"},
	types.TagsCollection:          {"tags", "tag_id"},
	types.CollectionsCollection:   {"collections", "collection_id"},
	types.PositionsCollection:     {"positions", "position_id"},
	types.WeeklyItemsCollection:   {"weekly_items", "item_id"},
	types.RelationshipsCollection: {"relationships", "relationship_id"},
}

// Get retrieves a record by ID.
// Returns ErrInvalidID if id is empty, ErrNotFound if absent.
func (c *collection) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	var rec any
	err := c.reader(func(q querier) error {
		var err error
		switch c.name {
		case types.EntitiesCollection:
			rec, err = getEntity(q, id)
		case types.BoardsCollection:
			rec, err = getBoard(q, id)
		case types.PeopleCollection:
			rec, err = getPerson(q, id)
		case types.TagsCollection:
			rec, err = getTag(q, id)
		case types.CollectionsCollection:
			rec, err = getCollection(q, id)
		case types.PositionsCollection:
			rec, err = getPosition(q, id)
		case types.WeeklyItemsCollection:
			rec, err = getWeeklyItem(q, id)
		case types.RelationshipsCollection:
			rec, err = getRelationship(q, id)
		default:
			err = types.ErrCollectionNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Put creates or updates a record (upsert by ID). Returns the ID used.
func (c *collection) Put(record any) (string, error) {
	var id string
	err := c.writer(func(q querier) error {
		var err error
		id, err = putRecord(q, c.name, record)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// BulkPut upserts every record in one pass. When the collection is
// store-bound the batch runs in its own transaction so partial writes are
// never visible; tx-bound collections ride the enclosing transaction.
func (c *collection) BulkPut(records []any) error {
	return c.writer(func(q querier) error {
		if db, ok := q.(*sql.DB); ok {
			tx, err := db.Begin()
			if err != nil {
				return wrapBusy(fmt.Errorf("beginning bulk put: %w", err))
			}
			defer tx.Rollback()
			for _, rec := range records {
				if _, err := putRecord(tx, c.name, rec); err != nil {
					return err
				}
			}
			if err := tx.Commit(); err != nil {
				return wrapBusy(fmt.Errorf("committing bulk put: %w", err))
			}
			return nil
		}
		for _, rec := range records {
			if _, err := putRecord(q, c.name, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a record by ID.
// Returns ErrInvalidID if id is empty, ErrNotFound if absent.
func (c *collection) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	meta := collectionMeta[c.name]
	return c.writer(func(q querier) error {
		res, err := q.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", meta.table, meta.pk), id)
		if err != nil {
			return fmt.Errorf("deleting from %s: %w", meta.table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("deleting from %s: %w", meta.table, err)
		}
		if n == 0 {
			return types.ErrNotFound
		}
		return nil
	})
}

// Where returns all records whose indexed field equals value.
func (c *collection) Where(field string, value any) ([]any, error) {
	var recs []any
	err := c.reader(func(q querier) error {
		var err error
		switch c.name {
		case types.EntitiesCollection:
			recs, err = whereEntities(q, field, value)
		case types.BoardsCollection:
			recs, err = whereBoards(q, field, value)
		case types.PeopleCollection:
			recs, err = wherePeople(q, field, value)
		case types.TagsCollection:
			recs, err = whereTags(q, field, value)
		case types.CollectionsCollection:
			recs, err = whereCollections(q, field, value)
		case types.PositionsCollection:
			recs, err = wherePositions(q, field, value)
		case types.WeeklyItemsCollection:
			recs, err = whereWeeklyItems(q, field, value)
		case types.RelationshipsCollection:
			recs, err = whereRelationships(q, field, value)
		default:
			err = types.ErrCollectionNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []any{}
	}
	return recs, nil
}

// All returns every record in the collection in stable order.
func (c *collection) All() ([]any, error) {
	var recs []any
	err := c.reader(func(q querier) error {
		switch c.name {
		case types.EntitiesCollection:
			ents, err := allEntities(q)
			if err != nil {
				return err
			}
			for _, e := range ents {
				recs = append(recs, e)
			}
		case types.BoardsCollection:
			boards, err := allBoards(q)
			if err != nil {
				return err
			}
			for _, b := range boards {
				recs = append(recs, b)
			}
		case types.PeopleCollection:
			people, err := allPeople(q)
			if err != nil {
				return err
			}
			for _, p := range people {
				recs = append(recs, p)
			}
		case types.TagsCollection:
			tags, err := allTags(q)
			if err != nil {
				return err
			}
			for _, t := range tags {
				recs = append(recs, t)
			}
		case types.CollectionsCollection:
			cols, err := allCollections(q)
			if err != nil {
				return err
			}
			for _, col := range cols {
				recs = append(recs, col)
			}
		case types.PositionsCollection:
			positions, err := allPositions(q)
			if err != nil {
				return err
			}
			for _, p := range positions {
				recs = append(recs, p)
			}
		case types.WeeklyItemsCollection:
			items, err := allWeeklyItems(q)
			if err != nil {
				return err
			}
			for _, w := range items {
				recs = append(recs, w)
			}
		case types.RelationshipsCollection:
			rels, err := allRelationships(q)
			if err != nil {
				return err
			}
			for _, r := range rels {
				recs = append(recs, r)
			}
		default:
			return types.ErrCollectionNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []any{}
	}
	return recs, nil
}

// putRecord routes an upsert to the typed helper for the collection.
func putRecord(q querier, name string, record any) (string, error) {
	switch name {
	case types.EntitiesCollection:
		return putEntity(q, record)
	case types.BoardsCollection:
		return putBoard(q, record)
	case types.PeopleCollection:
		return putPerson(q, record)
	case types.TagsCollection:
		return putTag(q, record)
	case types.CollectionsCollection:
		return putCollection(q, record)
	case types.PositionsCollection:
		return putPosition(q, record)
	case types.WeeklyItemsCollection:
		return putWeeklyItem(q, record)
	case types.RelationshipsCollection:
		return putRelationship(q, record)
	default:
		return "", types.ErrCollectionNotFound
	}
}

// stringFilter extracts a string filter value or fails with
// ErrInvalidFilter, matching the contract of Where.
func stringFilter(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		if sv, ok := value.(fmt.Stringer); ok {
			return sv.String(), nil
		}
		return "", types.ErrInvalidFilter
	}
	return s, nil
}

// Time and JSON column helpers.

// formatTime renders t as RFC3339 UTC, or empty for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses an RFC3339 column value; empty yields the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// encodeStrings renders a string slice as a JSON array column value.
func encodeStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// decodeStrings parses a JSON array column value into a string slice.
func decodeStrings(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("parsing string list column: %w", err)
	}
	if v == nil {
		v = []string{}
	}
	return v, nil
}

// encodeJSON renders any value as a JSON column value.
func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding JSON column: %w", err)
	}
	return string(b), nil
}

// decodeJSON parses a JSON column value into out.
func decodeJSON(s string, out any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("parsing JSON column: %w", err)
	}
	return nil
}
