package types

import "time"

// Relationship type constants.
const (
	RelTagged           = "tagged"            // entity → person assignment
	RelLabeled          = "labeled"           // entity → tag label
	RelCollectionMember = "collection_member" // entity → collection membership
	RelRelated          = "related"           // generic entity → entity link
)

// validRelationshipTypes is the set of recognized relationship types.
var validRelationshipTypes = map[string]bool{
	RelTagged:           true,
	RelLabeled:          true,
	RelCollectionMember: true,
	RelRelated:          true,
}

// ValidRelationshipType reports whether t is a recognized relationship type.
func ValidRelationshipType(t string) bool {
	return validRelationshipTypes[t]
}

// Relationship is a directed link between two records, interpreted
// bidirectionally by query: lookups by EntityID and by RelatedID both
// return it. Relationship rows are an index over authoritative state (an
// entity's Tags/People lists, a collection's EntityIDs list), never a
// second owner of it.
type Relationship struct {
	ID        string    `json:"id"`
	EntityID  string    `json:"entityId"`
	RelatedID string    `json:"relatedId"`
	Type      string    `json:"relationshipType"`
	CreatedAt time.Time `json:"createdAt"`
}
