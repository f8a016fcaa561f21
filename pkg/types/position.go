package types

// Context is the kind of placement a Position represents.
type Context string

// Placement contexts.
const (
	ContextBoard      Context = "board"
	ContextWeekly     Context = "weekly"
	ContextCollection Context = "collection"
)

// validContexts is the set of recognized placement contexts.
var validContexts = map[Context]bool{
	ContextBoard:      true,
	ContextWeekly:     true,
	ContextCollection: true,
}

// ValidContext reports whether c is a recognized placement context.
func ValidContext(c Context) bool {
	return validContexts[c]
}

// Position places one entity at one location within one context. At most one
// Position exists per (entityId, boardId, context) triple; the record ID is
// the derived key PositionID(entityId, boardId, context), so the store's
// primary key enforces the invariant.
type Position struct {
	ID        string  `json:"id"`
	EntityID  string  `json:"entityId"`
	BoardID   string  `json:"boardId"`
	Context   Context `json:"context"`
	RowID     string  `json:"rowId,omitempty"`
	ColumnKey string  `json:"columnKey,omitempty"`
	Order     int     `json:"order"`
}

// PositionID derives the record key for a (entityId, boardId, context)
// triple. The separator cannot appear in IDs minted by this module.
func PositionID(entityID, boardID string, context Context) string {
	return entityID + "|" + boardID + "|" + string(context)
}

// Key returns the derived record key for this position's triple.
func (p *Position) Key() string {
	return PositionID(p.EntityID, p.BoardID, p.Context)
}
