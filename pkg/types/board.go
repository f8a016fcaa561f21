package types

import "time"

// Group is a collapsible band of rows on a board.
type Group struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	Collapsed bool   `json:"collapsed"`
}

// Row is a horizontal lane on a board. GroupID is empty for ungrouped rows.
type Row struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	GroupID string `json:"groupId,omitempty"`
}

// Column is a vertical lane on a board. Key is the stable identifier used by
// Position records; Name is the display label.
type Column struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Board owns structural layout only: groups, rows, columns, and the counters
// used to mint new row/column/group IDs. It never owns entity content.
type Board struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Groups       []Group   `json:"groups"`
	Rows         []Row     `json:"rows"`
	Columns      []Column  `json:"columns"`
	NextRowID    int       `json:"nextRowId"`
	NextColumnID int       `json:"nextColumnId"`
	NextGroupID  int       `json:"nextGroupId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasRow reports whether the board has a row with the given ID.
func (b *Board) HasRow(rowID string) bool {
	for _, r := range b.Rows {
		if r.ID == rowID {
			return true
		}
	}
	return false
}

// HasColumnKey reports whether the board has a column with the given key.
func (b *Board) HasColumnKey(key string) bool {
	for _, c := range b.Columns {
		if c.Key == key {
			return true
		}
	}
	return false
}

// HasGroup reports whether the board has a group with the given ID.
func (b *Board) HasGroup(groupID string) bool {
	for _, g := range b.Groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}
