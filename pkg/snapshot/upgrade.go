package snapshot

import (
	"fmt"
	"sort"

	"github.com/n7apollo/gridflow/pkg/types"
)

// weekdayOrder fixes the day iteration order for weekly-plan conversion so
// item ordering never depends on Go map iteration.
var weekdayOrder = []string{
	types.DayMonday,
	types.DayTuesday,
	types.DayWednesday,
	types.DayThursday,
	types.DayFriday,
	types.DaySaturday,
	types.DaySunday,
}

// upgradeV1 wraps the single implicit top-level board of 1.0 into the
// boards map introduced by 2.0.
func upgradeV1(cx *chainContext, in *snapshotV1) *snapshotV2 {
	board := &legacyBoardCards{
		Name:         "Main Board",
		Groups:       in.Groups,
		Rows:         in.Rows,
		Columns:      in.Columns,
		NextRowID:    in.NextRowID,
		NextColumnID: in.NextColumnID,
		NextGroupID:  in.NextGroupID,
	}
	return &snapshotV2{
		Boards: map[string]*legacyBoardCards{cx.ids.Next("board"): board},
	}
}

// upgradeV2 adds the empty people and tags containers introduced by 3.0.
func upgradeV2(_ *chainContext, in *snapshotV2) *snapshotV3 {
	return &snapshotV3{
		Boards: in.Boards,
		People: []legacyPerson{},
		Tags:   []legacyTag{},
	}
}

// upgradeV3 adds the empty weeklyPlans container introduced by 4.0.
func upgradeV3(_ *chainContext, in *snapshotV3) *snapshotV4 {
	return &snapshotV4{
		Boards:      in.Boards,
		People:      in.People,
		Tags:        in.Tags,
		WeeklyPlans: make(map[string]legacyWeek),
	}
}

// upgradeV4 is the big normalization step: cards embedded in row cells
// become flat entity records with fresh IDs, and every reference to an old
// card ID (weekly plans) is remapped. A card in a cell whose column key is
// not declared on the board keeps its entity but loses the placement; the
// entity surfaces later as an orphan instead of being silently discarded.
func upgradeV4(cx *chainContext, in *snapshotV4) *snapshotV5 {
	out := &snapshotV5{
		Entities:    make(map[string]*legacyEntity),
		Boards:      make(map[string]*legacyBoardCells),
		People:      in.People,
		Tags:        in.Tags,
		WeeklyPlans: make(map[string]legacyWeek),
	}

	// Old card ID to extracted entity ID, first occurrence wins.
	remap := make(map[string]string)

	for _, boardID := range sortedKeys(in.Boards) {
		b := in.Boards[boardID]
		known := make(map[string]bool, len(b.Columns))
		for _, col := range b.Columns {
			known[col.Key] = true
		}

		nb := &legacyBoardCells{
			Name:         b.Name,
			Groups:       b.Groups,
			Columns:      b.Columns,
			NextRowID:    b.NextRowID,
			NextColumnID: b.NextColumnID,
			NextGroupID:  b.NextGroupID,
		}
		for _, row := range b.Rows {
			nr := legacyRowCells{
				ID:      row.ID,
				Name:    row.Name,
				GroupID: row.GroupID,
				Cells:   make(map[string][]flexID),
			}
			for _, key := range cellKeys(b.Columns, row.Cards) {
				cards := row.Cards[key]
				refs := make([]flexID, 0, len(cards))
				for i := range cards {
					id := extractCard(cx, out.Entities, remap, &cards[i])
					refs = append(refs, flexID(id))
				}
				if !known[key] {
					cx.warn(types.BoardsCollection, boardID,
						fmt.Sprintf("row %s references unknown column key %q; dropping placement of %d cards", row.ID, key, len(cards)))
					continue
				}
				nr.Cells[key] = refs
			}
			nb.Rows = append(nb.Rows, nr)
		}
		out.Boards[boardID] = nb
	}

	// Weekly plans referenced old card IDs; rewrite them through the remap.
	for _, week := range sortedKeys(in.WeeklyPlans) {
		days := in.WeeklyPlans[week]
		nw := make(legacyWeek)
		for _, day := range dayKeys(days) {
			var refs []flexID
			for _, ref := range days[day] {
				id, ok := remap[ref.String()]
				if !ok {
					cx.warn(types.WeeklyItemsCollection, week,
						fmt.Sprintf("week %s day %s references unknown card %q; dropping", week, day, ref))
					continue
				}
				refs = append(refs, flexID(id))
			}
			if len(refs) > 0 {
				nw[day] = refs
			}
		}
		out.WeeklyPlans[week] = nw
	}
	return out
}

// extractCard turns one embedded card into a flat entity with a fresh ID
// and records the old-to-new mapping.
func extractCard(cx *chainContext, entities map[string]*legacyEntity, remap map[string]string, c *legacyCard) string {
	id := cx.ids.Next("entity")
	typ := c.Type
	if typ == "" {
		typ = types.EntityTask
	}
	entities[id] = &legacyEntity{
		ID:        flexID(id),
		Type:      typ,
		Title:     c.Title,
		Content:   c.body(),
		Completed: c.isDone(),
		Priority:  c.Priority,
		DueDate:   c.DueDate,
		Tags:      c.Tags,
		People:    c.People,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if old := c.ID.String(); old != "" {
		if _, dup := remap[old]; dup {
			cx.warn(types.EntitiesCollection, id,
				fmt.Sprintf("duplicate card id %q; later occurrence keeps a fresh identity", old))
		} else {
			remap[old] = id
		}
	}
	return id
}

// upgradeV5 lifts per-row cell reference lists into the normalized
// entityPositions table of 6.0, addressed by numeric row and column index.
func upgradeV5(cx *chainContext, in *snapshotV5) *snapshotV6 {
	out := &snapshotV6{
		Entities:    in.Entities,
		Boards:      make(map[string]*legacyBoardPlain),
		People:      in.People,
		Tags:        in.Tags,
		Collections: []legacyCollection{},
		WeeklyPlans: in.WeeklyPlans,
	}

	seen := make(map[string]bool) // entityID|boardID, board context only
	for _, boardID := range sortedKeys(in.Boards) {
		b := in.Boards[boardID]
		colIndex := make(map[string]int, len(b.Columns))
		for i, col := range b.Columns {
			colIndex[col.Key] = i
		}

		nb := &legacyBoardPlain{
			Name:         b.Name,
			Groups:       b.Groups,
			Columns:      b.Columns,
			NextRowID:    b.NextRowID,
			NextColumnID: b.NextColumnID,
			NextGroupID:  b.NextGroupID,
		}
		for ri, row := range b.Rows {
			nb.Rows = append(nb.Rows, legacyRowPlain{ID: row.ID, Name: row.Name, GroupID: row.GroupID})
			for _, key := range cellRefKeys(b.Columns, row.Cells) {
				ci, ok := colIndex[key]
				if !ok {
					cx.warn(types.BoardsCollection, boardID,
						fmt.Sprintf("row %s references unknown column key %q; dropping placement of %d entities", row.ID, key, len(row.Cells[key])))
					continue
				}
				for order, ref := range row.Cells[key] {
					dup := ref.String() + "|" + boardID
					if seen[dup] {
						cx.warn(types.PositionsCollection, dup,
							fmt.Sprintf("entity %s placed twice on board %s; keeping first placement", ref, boardID))
						continue
					}
					seen[dup] = true
					out.EntityPositions = append(out.EntityPositions, legacyPosition{
						EntityID: ref,
						BoardID:  flexID(boardID),
						Context:  string(types.ContextBoard),
						Row:      ri,
						Column:   ci,
						Order:    order,
					})
				}
			}
		}
		out.Boards[boardID] = nb
	}
	return out
}

// upgradeV6 produces the current schema: positions switch from numeric
// row/column indexes to stable rowId/columnKey addressing, weekly plans
// become explicit item records, and every record takes its final typed
// shape.
func upgradeV6(cx *chainContext, in *snapshotV6) *types.Snapshot {
	out := types.NewSnapshot()

	for _, key := range sortedKeys(in.Entities) {
		e := in.Entities[key]
		id := e.ID.String()
		if id == "" {
			id = key
		}
		if id == "" {
			cx.warn(types.EntitiesCollection, "", "entity has no id; dropping")
			continue
		}
		out.Entities[id] = &types.Entity{
			ID:        id,
			Type:      e.Type,
			Title:     e.Title,
			Content:   e.Content,
			Completed: e.Completed,
			Priority:  e.Priority,
			DueDate:   e.DueDate,
			Tags:      flexIDs(e.Tags),
			People:    flexIDs(e.People),
			CreatedAt: e.CreatedAt.Time,
			UpdatedAt: e.UpdatedAt.Time,
		}
	}

	for _, boardID := range sortedKeys(in.Boards) {
		b := in.Boards[boardID]
		nb := &types.Board{
			ID:           boardID,
			Name:         b.Name,
			NextRowID:    b.NextRowID,
			NextColumnID: b.NextColumnID,
			NextGroupID:  b.NextGroupID,
		}
		for _, g := range b.Groups {
			nb.Groups = append(nb.Groups, types.Group{ID: g.ID.String(), Name: g.Name, Color: g.Color, Collapsed: g.Collapsed})
		}
		for _, r := range b.Rows {
			nb.Rows = append(nb.Rows, types.Row{ID: r.ID.String(), Name: r.Name, GroupID: r.GroupID.String()})
		}
		for _, c := range b.Columns {
			nb.Columns = append(nb.Columns, types.Column{ID: c.ID.String(), Name: c.Name, Key: c.Key})
		}
		out.Boards[boardID] = nb
	}

	seen := make(map[string]bool)
	for _, p := range in.EntityPositions {
		np, ok := convertPosition(cx, out.Boards, p)
		if !ok {
			continue
		}
		if seen[np.ID] {
			cx.warn(types.PositionsCollection, np.ID, "duplicate placement; keeping first")
			continue
		}
		seen[np.ID] = true
		out.EntityPositions = append(out.EntityPositions, np)
	}

	for _, week := range sortedKeys(in.WeeklyPlans) {
		plan := &types.WeeklyPlan{Items: []*types.WeeklyItem{}}
		placed := make(map[string]bool)
		for _, day := range dayKeys(in.WeeklyPlans[week]) {
			if !types.ValidDay(day) {
				cx.warn(types.WeeklyItemsCollection, week,
					fmt.Sprintf("week %s has unknown day %q; dropping its items", week, day))
				continue
			}
			for order, ref := range in.WeeklyPlans[week][day] {
				id := ref.String()
				if placed[id] {
					cx.warn(types.WeeklyItemsCollection, types.WeeklyItemID(week, id),
						fmt.Sprintf("entity %s placed twice in week %s; keeping first", id, week))
					continue
				}
				placed[id] = true
				plan.Items = append(plan.Items, &types.WeeklyItem{
					ID:       types.WeeklyItemID(week, id),
					WeekKey:  week,
					EntityID: id,
					Day:      day,
					Order:    order,
				})
			}
		}
		out.WeeklyPlans[week] = plan
	}

	for _, p := range in.People {
		out.People = append(out.People, &types.Person{
			ID:              p.ID.String(),
			Name:            p.Name,
			Email:           p.Email,
			LastInteraction: p.LastInteraction.Time,
			CreatedAt:       p.CreatedAt.Time,
		})
	}
	for _, t := range in.Tags {
		out.Tags = append(out.Tags, &types.Tag{
			ID:        t.ID.String(),
			Name:      t.Name,
			Color:     t.Color,
			CreatedAt: t.CreatedAt.Time,
		})
	}
	for _, c := range in.Collections {
		out.Collections = append(out.Collections, &types.Collection{
			ID:          c.ID.String(),
			Name:        c.Name,
			Description: c.Description,
			EntityIDs:   flexIDs(c.EntityIDs),
			CreatedAt:   c.CreatedAt.Time,
		})
	}
	return out
}

// convertPosition rewrites one index-addressed 6.0 position into stable
// rowId/columnKey addressing. Placements that point outside their board's
// layout are dropped with a warning; the entity itself survives.
func convertPosition(cx *chainContext, boards map[string]*types.Board, p legacyPosition) (*types.Position, bool) {
	entityID := p.EntityID.String()
	boardID := p.BoardID.String()
	context := types.Context(p.Context)
	if context == "" {
		context = types.ContextBoard
	}
	if !types.ValidContext(context) {
		cx.warn(types.PositionsCollection, entityID,
			fmt.Sprintf("position for entity %s has unknown context %q; dropping", entityID, p.Context))
		return nil, false
	}

	np := &types.Position{
		EntityID: entityID,
		BoardID:  boardID,
		Context:  context,
		Order:    p.Order,
	}
	if context == types.ContextBoard {
		b, ok := boards[boardID]
		if !ok {
			cx.warn(types.PositionsCollection, entityID,
				fmt.Sprintf("position for entity %s references unknown board %q; dropping", entityID, boardID))
			return nil, false
		}
		if p.Row < 0 || p.Row >= len(b.Rows) {
			cx.warn(types.PositionsCollection, entityID,
				fmt.Sprintf("position for entity %s has row index %d outside board %s; dropping", entityID, p.Row, boardID))
			return nil, false
		}
		if p.Column < 0 || p.Column >= len(b.Columns) {
			cx.warn(types.PositionsCollection, entityID,
				fmt.Sprintf("position for entity %s has column index %d outside board %s; dropping", entityID, p.Column, boardID))
			return nil, false
		}
		np.RowID = b.Rows[p.Row].ID
		np.ColumnKey = b.Columns[p.Column].Key
	}
	np.ID = np.Key()
	return np, true
}

// cellKeys returns the row's card-map keys in board column order, then any
// undeclared keys sorted.
func cellKeys(columns []legacyColumn, cells map[string][]legacyCard) []string {
	return orderedCellKeys(columns, sortedKeys(cells), func(k string) bool { _, ok := cells[k]; return ok })
}

// cellRefKeys is cellKeys for reference-list cells.
func cellRefKeys(columns []legacyColumn, cells map[string][]flexID) []string {
	return orderedCellKeys(columns, sortedKeys(cells), func(k string) bool { _, ok := cells[k]; return ok })
}

func orderedCellKeys(columns []legacyColumn, sorted []string, present func(string) bool) []string {
	var out []string
	declared := make(map[string]bool, len(columns))
	for _, col := range columns {
		declared[col.Key] = true
		if present(col.Key) {
			out = append(out, col.Key)
		}
	}
	for _, k := range sorted {
		if !declared[k] {
			out = append(out, k)
		}
	}
	return out
}

// dayKeys returns the week's day keys in weekday order, then any
// unrecognized keys sorted.
func dayKeys(week legacyWeek) []string {
	var out []string
	for _, d := range weekdayOrder {
		if _, ok := week[d]; ok {
			out = append(out, d)
		}
	}
	var extra []string
	for d := range week {
		if !types.ValidDay(d) {
			extra = append(extra, d)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// flexIDs converts a list of lenient IDs to plain strings.
func flexIDs(ids []flexID) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
