package types

import "time"

// Person is a contact record. People are referenced from entities via the
// People list and from "tagged" Relationship rows; LastInteraction is
// bumped whenever a tagged link is created.
type Person struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	LastInteraction time.Time `json:"lastInteraction,omitzero"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Tag is a label record referenced from entities via the Tags list.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Collection is a named set of entities. EntityIDs is the authoritative
// membership list; collection_member Relationship rows are the derived
// index over it.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	EntityIDs   []string  `json:"entityIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
