package index

import (
	"go.uber.org/zap"

	"github.com/n7apollo/gridflow/pkg/types"
)

// An entity is orphaned when nothing places it anywhere: no Position in
// any context, no WeeklyItem, and no collection-membership Relationship.
// Dangling placements are not this package's problem; the snapshot
// validator drops those before they ever reach the store.

// FindOrphans returns every orphaned entity in stable store order.
func (ix *Index) FindOrphans() ([]*types.Entity, error) {
	var out []*types.Entity
	collections := []string{
		types.EntitiesCollection, types.PositionsCollection,
		types.WeeklyItemsCollection, types.RelationshipsCollection,
	}
	err := ix.store.Transaction(types.TxRead, collections, func(tx types.Tx) error {
		orphans, err := findOrphans(tx)
		if err != nil {
			return err
		}
		out = orphans
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Recover places every orphaned entity into the board's first row and
// first column at appended order values, in one atomic batch. Recovered
// entities have a Position afterwards, so a second run finds nothing:
// recovery converges instead of relocating.
func (ix *Index) Recover(boardID string) (*types.RecoverReport, error) {
	report := &types.RecoverReport{}
	collections := []string{
		types.EntitiesCollection, types.BoardsCollection, types.PositionsCollection,
		types.WeeklyItemsCollection, types.RelationshipsCollection,
	}
	err := ix.store.Transaction(types.TxReadWrite, collections, func(tx types.Tx) error {
		boards, err := tx.Collection(types.BoardsCollection)
		if err != nil {
			return err
		}
		rec, err := boards.Get(boardID)
		if err != nil {
			return err
		}
		board := rec.(*types.Board)
		if len(board.Rows) == 0 || len(board.Columns) == 0 {
			return types.ErrNoPlacement
		}
		report.PlacementLocation = types.Placement{
			BoardID:   boardID,
			RowID:     board.Rows[0].ID,
			ColumnKey: board.Columns[0].Key,
		}

		orphans, err := findOrphans(tx)
		if err != nil {
			return err
		}
		if len(orphans) == 0 {
			return nil
		}

		positions, err := tx.Collection(types.PositionsCollection)
		if err != nil {
			return err
		}
		next, err := nextOrder(positions, report.PlacementLocation)
		if err != nil {
			return err
		}

		batch := make([]any, 0, len(orphans))
		for i, e := range orphans {
			pos := &types.Position{
				EntityID:  e.ID,
				BoardID:   boardID,
				Context:   types.ContextBoard,
				RowID:     report.PlacementLocation.RowID,
				ColumnKey: report.PlacementLocation.ColumnKey,
				Order:     next + i,
			}
			pos.ID = pos.Key()
			batch = append(batch, pos)
		}
		if err := positions.BulkPut(batch); err != nil {
			return err
		}
		report.RecoveredCount = len(orphans)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if report.RecoveredCount > 0 {
		ix.log.Info("recovered orphaned entities",
			zap.Int("count", report.RecoveredCount),
			zap.String("boardId", boardID))
	}
	return report, nil
}

// findOrphans computes the orphan set inside an open transaction.
func findOrphans(tx types.Tx) ([]*types.Entity, error) {
	placed := make(map[string]bool)

	positions, err := tx.Collection(types.PositionsCollection)
	if err != nil {
		return nil, err
	}
	recs, err := positions.All()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		placed[rec.(*types.Position).EntityID] = true
	}

	items, err := tx.Collection(types.WeeklyItemsCollection)
	if err != nil {
		return nil, err
	}
	recs, err = items.All()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		placed[rec.(*types.WeeklyItem).EntityID] = true
	}

	rels, err := tx.Collection(types.RelationshipsCollection)
	if err != nil {
		return nil, err
	}
	recs, err = rels.Where("relationshipType", types.RelCollectionMember)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		placed[rec.(*types.Relationship).EntityID] = true
	}

	entities, err := tx.Collection(types.EntitiesCollection)
	if err != nil {
		return nil, err
	}
	recs, err = entities.All()
	if err != nil {
		return nil, err
	}
	var orphans []*types.Entity
	for _, rec := range recs {
		e := rec.(*types.Entity)
		if !placed[e.ID] {
			orphans = append(orphans, e)
		}
	}
	return orphans, nil
}

// nextOrder returns the first free order value in the recovery cell.
func nextOrder(positions types.Table, loc types.Placement) (int, error) {
	recs, err := positions.Where("boardId", loc.BoardID)
	if err != nil {
		return 0, err
	}
	next := 0
	for _, rec := range recs {
		p := rec.(*types.Position)
		if p.Context != types.ContextBoard || p.RowID != loc.RowID || p.ColumnKey != loc.ColumnKey {
			continue
		}
		if p.Order >= next {
			next = p.Order + 1
		}
	}
	return next, nil
}
