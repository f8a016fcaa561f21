package types

// Issue describes one problem found in a snapshot. Issues in
// ValidationResult.Errors are fatal; issues in Warnings were repaired or
// dropped and never block an import.
type Issue struct {
	Collection string `json:"collection"`
	RecordID   string `json:"recordId,omitempty"`
	Field      string `json:"field,omitempty"`
	Message    string `json:"message"`
}

// Fix records one auto-repair the validator applied.
type Fix struct {
	Collection string `json:"collection"`
	RecordID   string `json:"recordId,omitempty"`
	Field      string `json:"field,omitempty"`
	Action     string `json:"action"`
}

// ValidationStats counts the records that survived validation.
type ValidationStats struct {
	Entities    int `json:"entities"`
	Boards      int `json:"boards"`
	People      int `json:"people"`
	Tags        int `json:"tags"`
	Collections int `json:"collections"`
	Positions   int `json:"positions"`
	WeeklyItems int `json:"weeklyItems"`
}

// ValidationResult is the validator's verdict on a snapshot. IsValid is
// true iff Errors is empty after the auto-repair pass; warnings never block
// import.
type ValidationResult struct {
	IsValid  bool            `json:"isValid"`
	Errors   []Issue         `json:"errors"`
	Warnings []Issue         `json:"warnings"`
	Fixes    []Fix           `json:"fixes"`
	Stats    ValidationStats `json:"stats"`
}

// ImportStats reports the outcome of one snapshot import.
type ImportStats struct {
	DetectedVersion  SchemaVersion   `json:"detectedVersion"`
	MigrationSteps   int             `json:"migrationSteps"`
	Written          ValidationStats `json:"written"`
	Relationships    int             `json:"relationships"`
	Fixes            int             `json:"fixes"`
	Warnings         []Issue         `json:"warnings"`
	RecoveredOrphans int             `json:"recoveredOrphans"`
}

// Placement names a board cell.
type Placement struct {
	BoardID   string `json:"boardId"`
	RowID     string `json:"rowId"`
	ColumnKey string `json:"columnKey"`
}

// RecoverReport is the outcome of one orphan recovery sweep.
type RecoverReport struct {
	RecoveredCount    int       `json:"recoveredCount"`
	PlacementLocation Placement `json:"placementLocation"`
}
