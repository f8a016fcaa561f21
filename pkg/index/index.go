// Package index maintains the derived placement and relationship state
// over the record store: Position rows for board/weekly/collection
// placement, Relationship rows for links, and the cascades that keep both
// referentially closed when records go away.
package index

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/n7apollo/gridflow/pkg/types"
)

// Index exposes placement and relationship operations over a Store. Every
// mutating operation runs inside one store transaction, so observers never
// see a half-applied cascade.
type Index struct {
	store types.Store
	log   *zap.Logger
	now   func() time.Time
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(ix *Index) { ix.log = log }
}

// WithClock sets the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(ix *Index) { ix.now = now }
}

// New creates an Index over the given store.
func New(store types.Store, opts ...Option) *Index {
	ix := &Index{
		store: store,
		log:   zap.NewNop(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// SetPosition places an entity at a location within a context. It is an
// upsert keyed by the (entityId, boardId, context) triple: moving an
// entity overwrites its one Position row and never leaves a stale row at
// the old location.
func (ix *Index) SetPosition(entityID, boardID string, context types.Context, rowID, columnKey string, order int) (*types.Position, error) {
	if !types.ValidContext(context) {
		return nil, fmt.Errorf("%w: unknown context %q", types.ErrInvalidData, context)
	}
	pos := &types.Position{
		EntityID:  entityID,
		BoardID:   boardID,
		Context:   context,
		RowID:     rowID,
		ColumnKey: columnKey,
		Order:     order,
	}
	pos.ID = pos.Key()

	collections := []string{types.EntitiesCollection, types.BoardsCollection, types.PositionsCollection}
	err := ix.store.Transaction(types.TxReadWrite, collections, func(tx types.Tx) error {
		entities, err := tx.Collection(types.EntitiesCollection)
		if err != nil {
			return err
		}
		if _, err := entities.Get(entityID); err != nil {
			return fmt.Errorf("placing entity %s: %w", entityID, err)
		}
		if context == types.ContextBoard {
			boards, err := tx.Collection(types.BoardsCollection)
			if err != nil {
				return err
			}
			rec, err := boards.Get(boardID)
			if err != nil {
				return fmt.Errorf("placing on board %s: %w", boardID, err)
			}
			board := rec.(*types.Board)
			if !board.HasRow(rowID) {
				return fmt.Errorf("%w: board %s has no row %q", types.ErrInvalidData, boardID, rowID)
			}
			if !board.HasColumnKey(columnKey) {
				return fmt.Errorf("%w: board %s has no column %q", types.ErrInvalidData, boardID, columnKey)
			}
		}
		positions, err := tx.Collection(types.PositionsCollection)
		if err != nil {
			return err
		}
		_, err = positions.Put(pos)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// GetPosition returns the entity's placement in the given context, or
// ErrNotFound.
func (ix *Index) GetPosition(entityID, boardID string, context types.Context) (*types.Position, error) {
	positions, err := ix.store.Collection(types.PositionsCollection)
	if err != nil {
		return nil, err
	}
	rec, err := positions.Get(types.PositionID(entityID, boardID, context))
	if err != nil {
		return nil, err
	}
	return rec.(*types.Position), nil
}

// EntitiesAt returns the entities placed in one board cell, ordered by
// their order value with ties in insertion order.
func (ix *Index) EntitiesAt(boardID string, context types.Context, rowID, columnKey string) ([]*types.Entity, error) {
	var out []*types.Entity
	collections := []string{types.PositionsCollection, types.EntitiesCollection}
	err := ix.store.Transaction(types.TxRead, collections, func(tx types.Tx) error {
		positions, err := tx.Collection(types.PositionsCollection)
		if err != nil {
			return err
		}
		entities, err := tx.Collection(types.EntitiesCollection)
		if err != nil {
			return err
		}
		recs, err := positions.Where("boardId", boardID)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			pos := rec.(*types.Position)
			if pos.Context != context {
				continue
			}
			if context == types.ContextBoard && (pos.RowID != rowID || pos.ColumnKey != columnKey) {
				continue
			}
			erec, err := entities.Get(pos.EntityID)
			if errors.Is(err, types.ErrNotFound) {
				// Stale placement; skip rather than fail the read.
				ix.log.Warn("position references missing entity",
					zap.String("positionId", pos.ID),
					zap.String("entityId", pos.EntityID))
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, erec.(*types.Entity))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Link creates a relationship between an entity and a related record.
// Linking an already-linked pair, in either direction, is a no-op that
// returns the existing row. A tagged link bumps the person's
// lastInteraction inside the same transaction; the side effect is part of
// Link's contract, not a storage hook.
func (ix *Index) Link(entityID, relatedID, relType string) (*types.Relationship, error) {
	if !types.ValidRelationshipType(relType) {
		return nil, fmt.Errorf("%w: unknown relationship type %q", types.ErrInvalidData, relType)
	}

	var rel *types.Relationship
	collections := []string{
		types.EntitiesCollection, types.PeopleCollection, types.TagsCollection,
		types.CollectionsCollection, types.RelationshipsCollection,
	}
	err := ix.store.Transaction(types.TxReadWrite, collections, func(tx types.Tx) error {
		entities, err := tx.Collection(types.EntitiesCollection)
		if err != nil {
			return err
		}
		if _, err := entities.Get(entityID); err != nil {
			return fmt.Errorf("linking entity %s: %w", entityID, err)
		}
		if err := ix.checkLinkTarget(tx, relatedID, relType); err != nil {
			return err
		}

		rels, err := tx.Collection(types.RelationshipsCollection)
		if err != nil {
			return err
		}
		existing, err := findLinks(rels, entityID, relatedID, relType)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			rel = existing[0]
			return nil
		}

		rel = &types.Relationship{
			EntityID:  entityID,
			RelatedID: relatedID,
			Type:      relType,
			CreatedAt: ix.now(),
		}
		id, err := rels.Put(rel)
		if err != nil {
			return err
		}
		rel.ID = id

		if relType == types.RelTagged {
			return ix.bumpLastInteraction(tx, relatedID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// checkLinkTarget verifies the related record exists in the collection the
// relationship type points at.
func (ix *Index) checkLinkTarget(tx types.Tx, relatedID, relType string) error {
	var name string
	switch relType {
	case types.RelTagged:
		name = types.PeopleCollection
	case types.RelLabeled:
		name = types.TagsCollection
	case types.RelCollectionMember:
		name = types.CollectionsCollection
	default:
		name = types.EntitiesCollection
	}
	coll, err := tx.Collection(name)
	if err != nil {
		return err
	}
	if _, err := coll.Get(relatedID); err != nil {
		return fmt.Errorf("linking to %s %s: %w", name, relatedID, err)
	}
	return nil
}

func (ix *Index) bumpLastInteraction(tx types.Tx, personID string) error {
	people, err := tx.Collection(types.PeopleCollection)
	if err != nil {
		return err
	}
	rec, err := people.Get(personID)
	if err != nil {
		return err
	}
	person := rec.(*types.Person)
	person.LastInteraction = ix.now()
	person.UpdatedAt = person.LastInteraction
	_, err = people.Put(person)
	return err
}

// findLinks returns relationship rows connecting the pair in either
// direction, filtered by type when relType is non-empty.
func findLinks(rels types.Table, entityID, relatedID, relType string) ([]*types.Relationship, error) {
	recs, err := rels.Where("entityId", entityID)
	if err != nil {
		return nil, err
	}
	reverse, err := rels.Where("relatedId", entityID)
	if err != nil {
		return nil, err
	}

	var out []*types.Relationship
	for _, rec := range recs {
		r := rec.(*types.Relationship)
		if r.RelatedID == relatedID && (relType == "" || r.Type == relType) {
			out = append(out, r)
		}
	}
	for _, rec := range reverse {
		r := rec.(*types.Relationship)
		if r.EntityID == relatedID && (relType == "" || r.Type == relType) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Unlink removes the relationship between the pair, matching either
// direction. Returns ErrNotFound when no such link exists.
func (ix *Index) Unlink(entityID, relatedID, relType string) error {
	return ix.store.Transaction(types.TxReadWrite, []string{types.RelationshipsCollection}, func(tx types.Tx) error {
		rels, err := tx.Collection(types.RelationshipsCollection)
		if err != nil {
			return err
		}
		links, err := findLinks(rels, entityID, relatedID, relType)
		if err != nil {
			return err
		}
		if len(links) == 0 {
			return types.ErrNotFound
		}
		for _, link := range links {
			if err := rels.Delete(link.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// RelatedTo returns every relationship touching the entity in either
// direction, optionally filtered by type ("" means all types).
func (ix *Index) RelatedTo(entityID, relType string) ([]*types.Relationship, error) {
	rels, err := ix.store.Collection(types.RelationshipsCollection)
	if err != nil {
		return nil, err
	}
	forward, err := rels.Where("entityId", entityID)
	if err != nil {
		return nil, err
	}
	reverse, err := rels.Where("relatedId", entityID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []*types.Relationship
	for _, rec := range append(forward, reverse...) {
		r := rec.(*types.Relationship)
		if relType != "" && r.Type != relType {
			continue
		}
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out, nil
}

// SetWeeklyItem places an entity on a day of a week, upserting by the
// (weekKey, entityId) pair.
func (ix *Index) SetWeeklyItem(weekKey, entityID, day string, order int) (*types.WeeklyItem, error) {
	if !types.ValidDay(day) {
		return nil, fmt.Errorf("%w: unknown day %q", types.ErrInvalidData, day)
	}
	item := &types.WeeklyItem{
		WeekKey:  weekKey,
		EntityID: entityID,
		Day:      day,
		Order:    order,
	}
	item.ID = item.Key()

	collections := []string{types.EntitiesCollection, types.WeeklyItemsCollection}
	err := ix.store.Transaction(types.TxReadWrite, collections, func(tx types.Tx) error {
		entities, err := tx.Collection(types.EntitiesCollection)
		if err != nil {
			return err
		}
		if _, err := entities.Get(entityID); err != nil {
			return fmt.Errorf("planning entity %s: %w", entityID, err)
		}
		items, err := tx.Collection(types.WeeklyItemsCollection)
		if err != nil {
			return err
		}
		_, err = items.Put(item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveWeeklyItem takes an entity off a week's plan.
func (ix *Index) RemoveWeeklyItem(weekKey, entityID string) error {
	items, err := ix.store.Collection(types.WeeklyItemsCollection)
	if err != nil {
		return err
	}
	return items.Delete(types.WeeklyItemID(weekKey, entityID))
}

// ItemsForWeek returns a week's plan ordered by day order then order value.
func (ix *Index) ItemsForWeek(weekKey string) ([]*types.WeeklyItem, error) {
	items, err := ix.store.Collection(types.WeeklyItemsCollection)
	if err != nil {
		return nil, err
	}
	recs, err := items.Where("weekKey", weekKey)
	if err != nil {
		return nil, err
	}
	out := make([]*types.WeeklyItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.(*types.WeeklyItem))
	}
	return out, nil
}

// DeleteEntity removes an entity and cascades: its Position rows, its
// WeeklyItem rows, every Relationship row touching it in either direction,
// and its membership in collection EntityIDs lists, all in one
// transaction.
func (ix *Index) DeleteEntity(entityID string) error {
	collections := []string{
		types.EntitiesCollection, types.PositionsCollection, types.WeeklyItemsCollection,
		types.RelationshipsCollection, types.CollectionsCollection,
	}
	return ix.store.Transaction(types.TxReadWrite, collections, func(tx types.Tx) error {
		entities, err := tx.Collection(types.EntitiesCollection)
		if err != nil {
			return err
		}
		if err := entities.Delete(entityID); err != nil {
			return err
		}

		if err := deleteWhere(tx, types.PositionsCollection, "entityId", entityID); err != nil {
			return err
		}
		if err := deleteWhere(tx, types.WeeklyItemsCollection, "entityId", entityID); err != nil {
			return err
		}
		if err := deleteWhere(tx, types.RelationshipsCollection, "entityId", entityID); err != nil {
			return err
		}
		if err := deleteWhere(tx, types.RelationshipsCollection, "relatedId", entityID); err != nil {
			return err
		}

		colls, err := tx.Collection(types.CollectionsCollection)
		if err != nil {
			return err
		}
		recs, err := colls.All()
		if err != nil {
			return err
		}
		for _, rec := range recs {
			c := rec.(*types.Collection)
			kept := c.EntityIDs[:0]
			for _, id := range c.EntityIDs {
				if id != entityID {
					kept = append(kept, id)
				}
			}
			if len(kept) != len(c.EntityIDs) {
				c.EntityIDs = kept
				if _, err := colls.Put(c); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// DeleteRow removes a row from a board and every board-context Position
// that sat in it.
func (ix *Index) DeleteRow(boardID, rowID string) error {
	return ix.deleteBoardPart(boardID, func(b *types.Board) bool {
		kept := b.Rows[:0]
		for _, row := range b.Rows {
			if row.ID != rowID {
				kept = append(kept, row)
			}
		}
		changed := len(kept) != len(b.Rows)
		b.Rows = kept
		return changed
	}, func(p *types.Position) bool {
		return p.Context == types.ContextBoard && p.RowID == rowID
	})
}

// DeleteColumn removes a column from a board and every board-context
// Position that sat in it.
func (ix *Index) DeleteColumn(boardID, columnKey string) error {
	return ix.deleteBoardPart(boardID, func(b *types.Board) bool {
		kept := b.Columns[:0]
		for _, col := range b.Columns {
			if col.Key != columnKey {
				kept = append(kept, col)
			}
		}
		changed := len(kept) != len(b.Columns)
		b.Columns = kept
		return changed
	}, func(p *types.Position) bool {
		return p.Context == types.ContextBoard && p.ColumnKey == columnKey
	})
}

// deleteBoardPart applies a structural edit to a board and drops the
// positions the edit strands, atomically.
func (ix *Index) deleteBoardPart(boardID string, edit func(*types.Board) bool, stranded func(*types.Position) bool) error {
	collections := []string{types.BoardsCollection, types.PositionsCollection}
	return ix.store.Transaction(types.TxReadWrite, collections, func(tx types.Tx) error {
		boards, err := tx.Collection(types.BoardsCollection)
		if err != nil {
			return err
		}
		rec, err := boards.Get(boardID)
		if err != nil {
			return err
		}
		board := rec.(*types.Board)
		if !edit(board) {
			return types.ErrNotFound
		}
		board.UpdatedAt = ix.now()
		if _, err := boards.Put(board); err != nil {
			return err
		}

		positions, err := tx.Collection(types.PositionsCollection)
		if err != nil {
			return err
		}
		recs, err := positions.Where("boardId", boardID)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			p := rec.(*types.Position)
			if !stranded(p) {
				continue
			}
			if err := positions.Delete(p.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// deleteWhere deletes every record in the collection matching the filter.
func deleteWhere(tx types.Tx, name, field, value string) error {
	coll, err := tx.Collection(name)
	if err != nil {
		return err
	}
	recs, err := coll.Where(field, value)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		id, err := recordID(rec)
		if err != nil {
			return err
		}
		if err := coll.Delete(id); err != nil {
			return err
		}
	}
	return nil
}

// recordID extracts the ID from any record kind deleteWhere handles.
func recordID(rec any) (string, error) {
	switch r := rec.(type) {
	case *types.Position:
		return r.ID, nil
	case *types.WeeklyItem:
		return r.ID, nil
	case *types.Relationship:
		return r.ID, nil
	default:
		return "", fmt.Errorf("%w: unexpected record type %T", types.ErrInvalidData, rec)
	}
}
