package snapshot

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Legacy snapshot shapes, one concrete struct per historical schema
// version. Each migration step is a total function between two of these
// concrete types, so there are no runtime shape probes past the initial
// decode. Fields that later versions renamed are carried side by side
// (text/content, done/completed) and reconciled during the upgrade.

// flexID accepts a JSON string or number; legacy snapshots used numeric
// IDs before 5.0.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = flexID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

// flexTime accepts RFC3339 strings, bare dates, and epoch milliseconds or
// seconds. Unparsable values decode to the zero time rather than failing:
// a bad timestamp is an omission for the validator to default, not a
// reason to abort a migration.
type flexTime struct {
	time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		f.Time = time.Time{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			f.Time = time.Time{}
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				f.Time = t
				return nil
			}
		}
		f.Time = time.Time{}
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		f.Time = time.Time{}
		return nil
	}
	// Heuristic: values past 1e12 are epoch milliseconds.
	if n > 1e12 {
		f.Time = time.UnixMilli(int64(n)).UTC()
	} else {
		f.Time = time.Unix(int64(n), 0).UTC()
	}
	return nil
}

// legacyCard is a card object embedded inside a row's cards map (versions
// 1.0 through 4.0).
type legacyCard struct {
	ID        flexID   `json:"id"`
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Text      string   `json:"text"` // pre-3.0 name for content
	Completed bool     `json:"completed"`
	Done      bool     `json:"done"` // pre-3.0 name for completed
	Priority  string   `json:"priority"`
	DueDate   string   `json:"dueDate"`
	Tags      []flexID `json:"tags"`
	People    []flexID `json:"people"`
	CreatedAt flexTime `json:"createdAt"`
	UpdatedAt flexTime `json:"updatedAt"`
}

// body returns the card's content, reconciling the pre-3.0 field name.
func (c *legacyCard) body() string {
	if c.Content != "" {
		return c.Content
	}
	return c.Text
}

// isDone reconciles the pre-3.0 completed flag name.
func (c *legacyCard) isDone() bool {
	return c.Completed || c.Done
}

type legacyGroup struct {
	ID        flexID `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

type legacyColumn struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// legacyRowCards is a row whose cells embed whole card objects (1.0-4.0).
type legacyRowCards struct {
	ID      flexID                  `json:"id"`
	Name    string                  `json:"name"`
	GroupID flexID                  `json:"groupId"`
	Cards   map[string][]legacyCard `json:"cards"`
}

// snapshotV1: one implicit board at the top level.
type snapshotV1 struct {
	Groups       []legacyGroup    `json:"groups"`
	Rows         []legacyRowCards `json:"rows"`
	Columns      []legacyColumn   `json:"columns"`
	NextRowID    int              `json:"nextRowId"`
	NextColumnID int              `json:"nextColumnId"`
	NextGroupID  int              `json:"nextGroupId"`
}

// legacyBoardCards is a board whose rows still embed card objects.
type legacyBoardCards struct {
	Name         string           `json:"name"`
	Groups       []legacyGroup    `json:"groups"`
	Rows         []legacyRowCards `json:"rows"`
	Columns      []legacyColumn   `json:"columns"`
	NextRowID    int              `json:"nextRowId"`
	NextColumnID int              `json:"nextColumnId"`
	NextGroupID  int              `json:"nextGroupId"`
}

// snapshotV2: multiple boards keyed by ID, cards still nested.
type snapshotV2 struct {
	Boards map[string]*legacyBoardCards `json:"boards"`
}

type legacyPerson struct {
	ID              flexID   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	LastInteraction flexTime `json:"lastInteraction"`
	CreatedAt       flexTime `json:"createdAt"`
}

type legacyTag struct {
	ID        flexID   `json:"id"`
	Name      string   `json:"name"`
	Color     string   `json:"color"`
	CreatedAt flexTime `json:"createdAt"`
}

// snapshotV3: people and tags become first-class records.
type snapshotV3 struct {
	Boards map[string]*legacyBoardCards `json:"boards"`
	People []legacyPerson               `json:"people"`
	Tags   []legacyTag                  `json:"tags"`
}

// legacyWeek maps day name to an ordered list of card references.
type legacyWeek map[string][]flexID

// snapshotV4: weekly plans added, still referencing nested card IDs.
type snapshotV4 struct {
	Boards      map[string]*legacyBoardCards `json:"boards"`
	People      []legacyPerson               `json:"people"`
	Tags        []legacyTag                  `json:"tags"`
	WeeklyPlans map[string]legacyWeek        `json:"weeklyPlans"`
}

// legacyEntity is the flat entity record of versions 5.0 and 6.0.
type legacyEntity struct {
	ID        flexID   `json:"id"`
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Completed bool     `json:"completed"`
	Priority  string   `json:"priority"`
	DueDate   string   `json:"dueDate"`
	Tags      []flexID `json:"tags"`
	People    []flexID `json:"people"`
	CreatedAt flexTime `json:"createdAt"`
	UpdatedAt flexTime `json:"updatedAt"`
}

// legacyRowCells is a row whose cells hold entity references (5.0).
type legacyRowCells struct {
	ID      flexID              `json:"id"`
	Name    string              `json:"name"`
	GroupID flexID              `json:"groupId"`
	Cells   map[string][]flexID `json:"cells"`
}

type legacyBoardCells struct {
	Name         string           `json:"name"`
	Groups       []legacyGroup    `json:"groups"`
	Rows         []legacyRowCells `json:"rows"`
	Columns      []legacyColumn   `json:"columns"`
	NextRowID    int              `json:"nextRowId"`
	NextColumnID int              `json:"nextColumnId"`
	NextGroupID  int              `json:"nextGroupId"`
}

// snapshotV5: flat entity table, rows hold reference lists per cell.
type snapshotV5 struct {
	Entities    map[string]*legacyEntity     `json:"entities"`
	Boards      map[string]*legacyBoardCells `json:"boards"`
	People      []legacyPerson               `json:"people"`
	Tags        []legacyTag                  `json:"tags"`
	WeeklyPlans map[string]legacyWeek        `json:"weeklyPlans"`
}

// legacyPosition addresses its board cell by numeric row/column index, the
// 6.0 convention.
type legacyPosition struct {
	EntityID flexID `json:"entityId"`
	BoardID  flexID `json:"boardId"`
	Context  string `json:"context"`
	Row      int    `json:"row"`
	Column   int    `json:"column"`
	Order    int    `json:"order"`
}

type legacyCollection struct {
	ID          flexID   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	EntityIDs   []flexID `json:"entityIds"`
	CreatedAt   flexTime `json:"createdAt"`
}

// legacyRowPlain is a row with no embedded placement at all (6.0, where
// placement moved to entityPositions).
type legacyRowPlain struct {
	ID      flexID `json:"id"`
	Name    string `json:"name"`
	GroupID flexID `json:"groupId"`
}

type legacyBoardPlain struct {
	Name         string           `json:"name"`
	Groups       []legacyGroup    `json:"groups"`
	Rows         []legacyRowPlain `json:"rows"`
	Columns      []legacyColumn   `json:"columns"`
	NextRowID    int              `json:"nextRowId"`
	NextColumnID int              `json:"nextColumnId"`
	NextGroupID  int              `json:"nextGroupId"`
}

// snapshotV6: normalized positions (index-addressed) and collections.
type snapshotV6 struct {
	Entities        map[string]*legacyEntity     `json:"entities"`
	Boards          map[string]*legacyBoardPlain `json:"boards"`
	People          []legacyPerson               `json:"people"`
	Tags            []legacyTag                  `json:"tags"`
	Collections     []legacyCollection           `json:"collections"`
	EntityPositions []legacyPosition             `json:"entityPositions"`
	WeeklyPlans     map[string]legacyWeek        `json:"weeklyPlans"`
}
