package types

// SchemaVersion tags one of the historical snapshot schema versions.
type SchemaVersion string

// Known schema versions, oldest first.
const (
	SchemaV1 SchemaVersion = "1.0"
	SchemaV2 SchemaVersion = "2.0"
	SchemaV3 SchemaVersion = "3.0"
	SchemaV4 SchemaVersion = "4.0"
	SchemaV5 SchemaVersion = "5.0"
	SchemaV6 SchemaVersion = "6.0"
	SchemaV7 SchemaVersion = "7.0"
)

// CurrentSchema is the version every migrated snapshot ends at.
const CurrentSchema = SchemaV7

// SchemaVersions lists all known versions in ascending order.
var SchemaVersions = []SchemaVersion{
	SchemaV1, SchemaV2, SchemaV3, SchemaV4, SchemaV5, SchemaV6, SchemaV7,
}

// KnownSchema reports whether v is a recognized schema version tag.
func KnownSchema(v SchemaVersion) bool {
	for _, known := range SchemaVersions {
		if v == known {
			return true
		}
	}
	return false
}

// SchemaIndex returns the position of v in SchemaVersions, or -1 when v is
// not a known version.
func SchemaIndex(v SchemaVersion) int {
	for i, known := range SchemaVersions {
		if v == known {
			return i
		}
	}
	return -1
}

// Snapshot is the full exported/imported application state in the current
// schema. This shape is the stable wire contract: every migration chain
// output and every export serializes to it. Derivable relationship rows
// (labeled, tagged, collection_member) are not carried; they are rebuilt
// from entity Tags/People lists and collection EntityIDs lists on import.
// Relationships holds only the entity-to-entity "related" links, which
// have no authoritative source list to derive from.
type Snapshot struct {
	Version         SchemaVersion          `json:"version"`
	Entities        map[string]*Entity     `json:"entities"`
	Boards          map[string]*Board      `json:"boards"`
	People          []*Person              `json:"people"`
	Tags            []*Tag                 `json:"tags"`
	Collections     []*Collection          `json:"collections"`
	EntityPositions []*Position            `json:"entityPositions"`
	WeeklyPlans     map[string]*WeeklyPlan `json:"weeklyPlans"`
	Relationships   []*Relationship        `json:"relationships,omitempty"`
}

// NewSnapshot returns an empty snapshot at the current schema version with
// all containers allocated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:         CurrentSchema,
		Entities:        make(map[string]*Entity),
		Boards:          make(map[string]*Board),
		People:          []*Person{},
		Tags:            []*Tag{},
		Collections:     []*Collection{},
		EntityPositions: []*Position{},
		WeeklyPlans:     make(map[string]*WeeklyPlan),
	}
}
