package snapshot

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/n7apollo/gridflow/pkg/types"
)

// Validator checks a normalized snapshot and repairs it in place. Problems
// split two ways: errors are structural damage that survives the repair
// pass and blocks import; warnings record references and duplicates that
// were repaired or dropped, and never block anything.
type Validator struct {
	log *zap.Logger
	ids IDGen
	now func() time.Time
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithValidatorLogger sets the logger for repair warnings.
func WithValidatorLogger(log *zap.Logger) ValidatorOption {
	return func(v *Validator) { v.log = log }
}

// WithValidatorIDGen sets the generator used to mint IDs for records that
// arrived without one.
func WithValidatorIDGen(ids IDGen) ValidatorOption {
	return func(v *Validator) { v.ids = ids }
}

// WithClock sets the time source used when defaulting missing timestamps.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a validator. Defaults: no-op logger, UUID IDs,
// wall-clock time.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		log: zap.NewNop(),
		ids: UUIDGen{},
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// run carries one validation pass.
type run struct {
	v    *Validator
	s    *types.Snapshot
	res  *types.ValidationResult
	when time.Time
}

func (r *run) errorf(collection, recordID, field, format string, args ...any) {
	r.res.Errors = append(r.res.Errors, types.Issue{
		Collection: collection, RecordID: recordID, Field: field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *run) warnf(collection, recordID, field, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.res.Warnings = append(r.res.Warnings, types.Issue{
		Collection: collection, RecordID: recordID, Field: field, Message: msg,
	})
	r.v.log.Warn("validation warning",
		zap.String("collection", collection),
		zap.String("recordId", recordID),
		zap.String("message", msg))
}

func (r *run) fix(collection, recordID, field, action string) {
	r.res.Fixes = append(r.res.Fixes, types.Fix{
		Collection: collection, RecordID: recordID, Field: field, Action: action,
	})
}

// Validate repairs s in place and reports what it found. IsValid is true
// iff no structural error survived the repair pass; a snapshot with only
// warnings and fixes is importable.
func (v *Validator) Validate(s *types.Snapshot) *types.ValidationResult {
	res := &types.ValidationResult{}
	if s == nil {
		res.Errors = append(res.Errors, types.Issue{Message: "snapshot is nil"})
		return res
	}
	normalize(s)

	r := &run{v: v, s: s, res: res, when: v.now()}
	r.checkPeople()
	r.checkTags()
	r.checkEntities()
	r.checkBoards()
	r.checkCollections()
	r.checkPositions()
	r.checkWeeklyPlans()
	r.checkRelationships()

	res.Stats = types.ValidationStats{
		Entities:    len(s.Entities),
		Boards:      len(s.Boards),
		People:      len(s.People),
		Tags:        len(s.Tags),
		Collections: len(s.Collections),
		Positions:   len(s.EntityPositions),
	}
	for _, plan := range s.WeeklyPlans {
		res.Stats.WeeklyItems += len(plan.Items)
	}
	res.IsValid = len(res.Errors) == 0
	return res
}

func (r *run) checkPeople() {
	kept := r.s.People[:0]
	seen := make(map[string]bool)
	for _, p := range r.s.People {
		if p == nil {
			r.warnf(types.PeopleCollection, "", "", "nil person record; dropping")
			continue
		}
		if p.ID == "" {
			p.ID = r.v.ids.Next("person")
			r.fix(types.PeopleCollection, p.ID, "id", "minted missing id")
		}
		if seen[p.ID] {
			r.warnf(types.PeopleCollection, p.ID, "id", "duplicate person id; keeping first")
			continue
		}
		seen[p.ID] = true
		if p.CreatedAt.IsZero() {
			p.CreatedAt = r.when
			r.fix(types.PeopleCollection, p.ID, "createdAt", "defaulted to now")
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		kept = append(kept, p)
	}
	r.s.People = kept
}

func (r *run) checkTags() {
	kept := r.s.Tags[:0]
	seen := make(map[string]bool)
	for _, t := range r.s.Tags {
		if t == nil {
			r.warnf(types.TagsCollection, "", "", "nil tag record; dropping")
			continue
		}
		if t.ID == "" {
			t.ID = r.v.ids.Next("tag")
			r.fix(types.TagsCollection, t.ID, "id", "minted missing id")
		}
		if seen[t.ID] {
			r.warnf(types.TagsCollection, t.ID, "id", "duplicate tag id; keeping first")
			continue
		}
		seen[t.ID] = true
		if t.CreatedAt.IsZero() {
			t.CreatedAt = r.when
			r.fix(types.TagsCollection, t.ID, "createdAt", "defaulted to now")
		}
		kept = append(kept, t)
	}
	r.s.Tags = kept
}

func (r *run) checkEntities() {
	tags := make(map[string]bool, len(r.s.Tags))
	for _, t := range r.s.Tags {
		tags[t.ID] = true
	}
	people := make(map[string]bool, len(r.s.People))
	for _, p := range r.s.People {
		people[p.ID] = true
	}

	for key, e := range r.s.Entities {
		if e == nil {
			r.errorf(types.EntitiesCollection, key, "", "nil entity record")
			delete(r.s.Entities, key)
			continue
		}
		if key == "" && e.ID == "" {
			r.errorf(types.EntitiesCollection, "", "id", "entity has no id")
			delete(r.s.Entities, key)
			continue
		}
		if key == "" {
			// Entity carried an id but was filed under an empty key.
			delete(r.s.Entities, key)
			r.s.Entities[e.ID] = e
			r.fix(types.EntitiesCollection, e.ID, "id", "refiled under its own id")
		} else if e.ID != key {
			// The map key wins; the embedded id was stale.
			e.ID = key
			r.fix(types.EntitiesCollection, key, "id", "aligned id with map key")
		}
		if e.Type == "" || !types.ValidEntityType(e.Type) {
			r.fix(types.EntitiesCollection, e.ID, "type", fmt.Sprintf("coerced %q to %q", e.Type, types.EntityTask))
			e.Type = types.EntityTask
		}
		if e.Priority != "" && e.Priority != types.PriorityLow && e.Priority != types.PriorityMedium && e.Priority != types.PriorityHigh {
			r.fix(types.EntitiesCollection, e.ID, "priority", fmt.Sprintf("cleared unknown priority %q", e.Priority))
			e.Priority = ""
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = r.when
			r.fix(types.EntitiesCollection, e.ID, "createdAt", "defaulted to now")
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = e.CreatedAt
		}
		e.Tags = r.filterRefs(types.EntitiesCollection, e.ID, "tags", e.Tags, tags)
		e.People = r.filterRefs(types.EntitiesCollection, e.ID, "people", e.People, people)
	}
}

// filterRefs drops references to records that do not exist.
func (r *run) filterRefs(collection, recordID, field string, refs []string, known map[string]bool) []string {
	if refs == nil {
		return []string{}
	}
	kept := refs[:0]
	for _, ref := range refs {
		if !known[ref] {
			r.warnf(collection, recordID, field, "dangling reference %q; dropping", ref)
			continue
		}
		kept = append(kept, ref)
	}
	return kept
}

func (r *run) checkBoards() {
	for key, b := range r.s.Boards {
		if b == nil {
			r.errorf(types.BoardsCollection, key, "", "nil board record")
			delete(r.s.Boards, key)
			continue
		}
		if b.ID != key {
			b.ID = key
			r.fix(types.BoardsCollection, key, "id", "aligned id with map key")
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = r.when
			r.fix(types.BoardsCollection, b.ID, "createdAt", "defaulted to now")
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = b.CreatedAt
		}

		groups := make(map[string]bool, len(b.Groups))
		keptGroups := b.Groups[:0]
		for i := range b.Groups {
			g := &b.Groups[i]
			if g.ID == "" {
				g.ID = r.v.ids.Next("group")
				r.fix(types.BoardsCollection, b.ID, "groups", "minted missing group id")
			}
			if groups[g.ID] {
				r.warnf(types.BoardsCollection, b.ID, "groups", "duplicate group id %q; keeping first", g.ID)
				continue
			}
			groups[g.ID] = true
			keptGroups = append(keptGroups, *g)
		}
		b.Groups = keptGroups

		rows := make(map[string]bool, len(b.Rows))
		keptRows := b.Rows[:0]
		for i := range b.Rows {
			row := &b.Rows[i]
			if row.ID == "" {
				row.ID = r.v.ids.Next("row")
				r.fix(types.BoardsCollection, b.ID, "rows", "minted missing row id")
			}
			if rows[row.ID] {
				r.warnf(types.BoardsCollection, b.ID, "rows", "duplicate row id %q; keeping first", row.ID)
				continue
			}
			rows[row.ID] = true
			if row.GroupID != "" && !groups[row.GroupID] {
				r.warnf(types.BoardsCollection, b.ID, "rows", "row %s references unknown group %q; clearing", row.ID, row.GroupID)
				r.fix(types.BoardsCollection, b.ID, "rows", "cleared dangling group reference")
				row.GroupID = ""
			}
			keptRows = append(keptRows, *row)
		}
		b.Rows = keptRows

		cols := make(map[string]bool, len(b.Columns))
		keptCols := b.Columns[:0]
		for i := range b.Columns {
			col := &b.Columns[i]
			if col.Key == "" {
				r.errorf(types.BoardsCollection, b.ID, "columns", "column %q has no key", col.ID)
				continue
			}
			if cols[col.Key] {
				r.warnf(types.BoardsCollection, b.ID, "columns", "duplicate column key %q; keeping first", col.Key)
				continue
			}
			cols[col.Key] = true
			keptCols = append(keptCols, *col)
		}
		b.Columns = keptCols
	}
}

func (r *run) checkCollections() {
	entities := r.entitySet()
	kept := r.s.Collections[:0]
	seen := make(map[string]bool)
	for _, c := range r.s.Collections {
		if c == nil {
			r.warnf(types.CollectionsCollection, "", "", "nil collection record; dropping")
			continue
		}
		if c.ID == "" {
			c.ID = r.v.ids.Next("collection")
			r.fix(types.CollectionsCollection, c.ID, "id", "minted missing id")
		}
		if seen[c.ID] {
			r.warnf(types.CollectionsCollection, c.ID, "id", "duplicate collection id; keeping first")
			continue
		}
		seen[c.ID] = true
		if c.CreatedAt.IsZero() {
			c.CreatedAt = r.when
			r.fix(types.CollectionsCollection, c.ID, "createdAt", "defaulted to now")
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = c.CreatedAt
		}
		c.EntityIDs = r.filterRefs(types.CollectionsCollection, c.ID, "entityIds", c.EntityIDs, entities)
		kept = append(kept, c)
	}
	r.s.Collections = kept
}

// checkPositions owns dangling-placement policy: a Position whose entity,
// board, row, or column no longer exists is dropped here with a warning.
// Orphan recovery later deals only with entities that end up with no
// placement at all.
func (r *run) checkPositions() {
	entities := r.entitySet()
	collections := make(map[string]bool, len(r.s.Collections))
	for _, c := range r.s.Collections {
		collections[c.ID] = true
	}

	kept := r.s.EntityPositions[:0]
	seen := make(map[string]bool)
	for _, p := range r.s.EntityPositions {
		if p == nil {
			r.warnf(types.PositionsCollection, "", "", "nil position record; dropping")
			continue
		}
		if p.EntityID == "" {
			r.warnf(types.PositionsCollection, p.ID, "entityId", "position has no entity id; dropping")
			continue
		}
		if !entities[p.EntityID] {
			r.warnf(types.PositionsCollection, p.ID, "entityId", "position references unknown entity %q; dropping", p.EntityID)
			continue
		}
		if p.Context == "" {
			p.Context = types.ContextBoard
			r.fix(types.PositionsCollection, p.ID, "context", "defaulted to board")
		}
		if !types.ValidContext(p.Context) {
			r.warnf(types.PositionsCollection, p.ID, "context", "unknown context %q; dropping", p.Context)
			continue
		}
		// The store keys positions by the full triple, so an empty board
		// id is undecidable in any context.
		if p.BoardID == "" {
			r.warnf(types.PositionsCollection, p.ID, "boardId", "position has no board id; dropping")
			continue
		}
		switch p.Context {
		case types.ContextBoard:
			b, ok := r.s.Boards[p.BoardID]
			if !ok {
				r.warnf(types.PositionsCollection, p.ID, "boardId", "position references unknown board %q; dropping", p.BoardID)
				continue
			}
			if !b.HasRow(p.RowID) {
				r.warnf(types.PositionsCollection, p.ID, "rowId", "position references unknown row %q on board %s; dropping", p.RowID, p.BoardID)
				continue
			}
			if !b.HasColumnKey(p.ColumnKey) {
				r.warnf(types.PositionsCollection, p.ID, "columnKey", "position references unknown column %q on board %s; dropping", p.ColumnKey, p.BoardID)
				continue
			}
		case types.ContextCollection:
			if !collections[p.BoardID] {
				r.warnf(types.PositionsCollection, p.ID, "boardId", "position references unknown collection %q; dropping", p.BoardID)
				continue
			}
		}
		if want := p.Key(); p.ID != want {
			p.ID = want
			r.fix(types.PositionsCollection, p.ID, "id", "derived key from triple")
		}
		if seen[p.ID] {
			r.warnf(types.PositionsCollection, p.ID, "id", "duplicate placement; keeping first")
			continue
		}
		seen[p.ID] = true
		kept = append(kept, p)
	}
	r.s.EntityPositions = kept
}

func (r *run) checkWeeklyPlans() {
	entities := r.entitySet()
	for week, plan := range r.s.WeeklyPlans {
		if plan == nil {
			plan = &types.WeeklyPlan{}
			r.s.WeeklyPlans[week] = plan
		}
		kept := plan.Items[:0]
		seen := make(map[string]bool)
		for _, item := range plan.Items {
			if item == nil {
				r.warnf(types.WeeklyItemsCollection, "", "", "nil weekly item; dropping")
				continue
			}
			if item.WeekKey != week {
				item.WeekKey = week
				r.fix(types.WeeklyItemsCollection, item.ID, "weekKey", "aligned weekKey with plan key")
			}
			if item.EntityID == "" || !entities[item.EntityID] {
				r.warnf(types.WeeklyItemsCollection, item.ID, "entityId", "weekly item references unknown entity %q; dropping", item.EntityID)
				continue
			}
			if !types.ValidDay(item.Day) {
				r.warnf(types.WeeklyItemsCollection, item.ID, "day", "unknown day %q; dropping", item.Day)
				continue
			}
			if want := item.Key(); item.ID != want {
				item.ID = want
				r.fix(types.WeeklyItemsCollection, item.ID, "id", "derived key from week and entity")
			}
			if seen[item.ID] {
				r.warnf(types.WeeklyItemsCollection, item.ID, "id", "entity placed twice in week %s; keeping first", week)
				continue
			}
			seen[item.ID] = true
			kept = append(kept, item)
		}
		plan.Items = kept
	}
}

// checkRelationships covers the carried relationship rows. Only
// entity-to-entity "related" links belong in the wire shape; rows of
// derivable types are redundant with the entity and collection lists and
// are dropped so those lists stay the single source of truth.
func (r *run) checkRelationships() {
	entities := r.entitySet()
	kept := r.s.Relationships[:0]
	seen := make(map[string]bool)
	for _, rel := range r.s.Relationships {
		if rel == nil {
			r.warnf(types.RelationshipsCollection, "", "", "nil relationship record; dropping")
			continue
		}
		if rel.Type != types.RelRelated {
			r.warnf(types.RelationshipsCollection, rel.ID, "relationshipType", "%q rows are derived from entity and collection lists; dropping", rel.Type)
			continue
		}
		if !entities[rel.EntityID] || !entities[rel.RelatedID] {
			r.warnf(types.RelationshipsCollection, rel.ID, "entityId", "relationship references unknown entity; dropping")
			continue
		}
		if rel.ID == "" {
			rel.ID = r.v.ids.Next("relationship")
			r.fix(types.RelationshipsCollection, rel.ID, "id", "minted missing id")
		}
		if rel.CreatedAt.IsZero() {
			rel.CreatedAt = r.when
			r.fix(types.RelationshipsCollection, rel.ID, "createdAt", "defaulted to now")
		}
		// One row per pair, either direction.
		if seen[rel.EntityID+"|"+rel.RelatedID] || seen[rel.RelatedID+"|"+rel.EntityID] {
			r.warnf(types.RelationshipsCollection, rel.ID, "id", "duplicate link for pair; keeping first")
			continue
		}
		seen[rel.EntityID+"|"+rel.RelatedID] = true
		kept = append(kept, rel)
	}
	r.s.Relationships = kept
}

func (r *run) entitySet() map[string]bool {
	set := make(map[string]bool, len(r.s.Entities))
	for id := range r.s.Entities {
		set[id] = true
	}
	return set
}
