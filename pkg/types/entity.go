package types

import "time"

// Entity types. An entity is the unit of user content; its type selects how
// the UI renders it but not how it is stored or indexed.
const (
	EntityTask      = "task"
	EntityNote      = "note"
	EntityChecklist = "checklist"
	EntityProject   = "project"
	EntityPerson    = "person"
)

// validEntityTypes is the set of recognized entity type values.
var validEntityTypes = map[string]bool{
	EntityTask:      true,
	EntityNote:      true,
	EntityChecklist: true,
	EntityProject:   true,
	EntityPerson:    true,
}

// ValidEntityType reports whether t is a recognized entity type.
func ValidEntityType(t string) bool {
	return validEntityTypes[t]
}

// Entity priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Entity is a task, note, checklist, project, or person record. Entities are
// the sole owners of their descriptive fields; placement lives in Position
// rows and links live in Relationship rows.
type Entity struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Completed bool      `json:"completed"`
	Priority  string    `json:"priority,omitempty"`
	DueDate   string    `json:"dueDate,omitempty"`
	Tags      []string  `json:"tags"`
	People    []string  `json:"people"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch updates the entity's modification timestamp.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
