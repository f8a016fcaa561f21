package importer

import (
	"github.com/n7apollo/gridflow/pkg/types"
)

// Export reads the whole store in one transaction and produces the wire
// snapshot at the current schema version. Labeled, tagged, and
// collection_member relationship rows are not exported; they are derived
// from entity and collection lists on import. Entity-to-entity "related"
// rows have no such list and are carried in the snapshot, so a round trip
// reproduces all of them exactly.
func (c *Coordinator) Export() (*types.Snapshot, error) {
	s := types.NewSnapshot()
	collections := []string{
		types.EntitiesCollection, types.BoardsCollection, types.PeopleCollection,
		types.TagsCollection, types.CollectionsCollection, types.PositionsCollection,
		types.WeeklyItemsCollection, types.RelationshipsCollection,
	}
	err := c.store.Transaction(types.TxRead, collections, func(tx types.Tx) error {
		if err := eachRecord(tx, types.EntitiesCollection, func(rec any) {
			e := rec.(*types.Entity)
			s.Entities[e.ID] = e
		}); err != nil {
			return err
		}
		if err := eachRecord(tx, types.BoardsCollection, func(rec any) {
			b := rec.(*types.Board)
			s.Boards[b.ID] = b
		}); err != nil {
			return err
		}
		if err := eachRecord(tx, types.PeopleCollection, func(rec any) {
			s.People = append(s.People, rec.(*types.Person))
		}); err != nil {
			return err
		}
		if err := eachRecord(tx, types.TagsCollection, func(rec any) {
			s.Tags = append(s.Tags, rec.(*types.Tag))
		}); err != nil {
			return err
		}
		if err := eachRecord(tx, types.CollectionsCollection, func(rec any) {
			s.Collections = append(s.Collections, rec.(*types.Collection))
		}); err != nil {
			return err
		}
		if err := eachRecord(tx, types.PositionsCollection, func(rec any) {
			s.EntityPositions = append(s.EntityPositions, rec.(*types.Position))
		}); err != nil {
			return err
		}
		if err := eachRecord(tx, types.WeeklyItemsCollection, func(rec any) {
			item := rec.(*types.WeeklyItem)
			plan, ok := s.WeeklyPlans[item.WeekKey]
			if !ok {
				plan = &types.WeeklyPlan{}
				s.WeeklyPlans[item.WeekKey] = plan
			}
			plan.Items = append(plan.Items, item)
		}); err != nil {
			return err
		}
		return eachRecord(tx, types.RelationshipsCollection, func(rec any) {
			rel := rec.(*types.Relationship)
			if rel.Type == types.RelRelated {
				s.Relationships = append(s.Relationships, rel)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// eachRecord streams every record of a collection through visit.
func eachRecord(tx types.Tx, name string, visit func(rec any)) error {
	coll, err := tx.Collection(name)
	if err != nil {
		return err
	}
	recs, err := coll.All()
	if err != nil {
		return err
	}
	for _, rec := range recs {
		visit(rec)
	}
	return nil
}
