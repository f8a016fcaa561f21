package types

import "errors"

// TxMode selects the access mode for a Store transaction.
type TxMode string

// Transaction modes.
const (
	TxRead      TxMode = "r"
	TxReadWrite TxMode = "rw"
)

// Store is the backend-agnostic contract for the keyed record store.
// Callers open a backend, access collections by name, and close when done.
type Store interface {
	// Collection returns the Table for the named collection.
	// Returns ErrCollectionNotFound if the name is not a standard collection.
	Collection(name string) (Table, error)

	// Transaction runs fn inside a single backend transaction spanning the
	// named collections. The transaction commits only if fn returns nil;
	// any error from fn rolls back every write made through the Tx.
	Transaction(mode TxMode, collections []string, fn func(tx Tx) error) error

	// Close releases backend resources. Idempotent: multiple calls succeed.
	// After Close, operations on collections return ErrStoreClosed.
	Close() error
}

// Tx provides collection access scoped to one open transaction.
// Writes through a Tx become visible only on commit.
type Tx interface {
	Collection(name string) (Table, error)
}

// Table provides uniform keyed CRUD for a single record kind.
// Get and Where return any; callers type-assert to the concrete record
// struct for the collection.
type Table interface {
	// Get retrieves the record with the given ID.
	// Returns ErrNotFound if no record exists with that ID.
	Get(id string) (any, error)

	// Put creates or updates a record (upsert by ID). When the record's ID
	// is empty a new UUID v7 is generated, except for collections whose IDs
	// are derived keys (positions, weekly items). Returns the ID used.
	Put(record any) (string, error)

	// BulkPut upserts every record in one pass. Inside a Transaction the
	// whole batch commits or rolls back with the transaction.
	BulkPut(records []any) error

	// Delete removes the record with the given ID.
	// Returns ErrNotFound if no record exists with that ID.
	Delete(id string) error

	// Where returns all records whose indexed field equals value.
	// Returns ErrInvalidFilter if the field is not indexed for this
	// collection.
	Where(field string, value any) ([]any, error)

	// All returns every record in the collection in stable order.
	All() ([]any, error)
}

// Store lifecycle errors.
var (
	ErrStoreClosed        = errors.New("store is closed")
	ErrAlreadyOpen        = errors.New("store is already open")
	ErrCollectionNotFound = errors.New("collection not found")
)

// Table operation errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidID     = errors.New("invalid record ID")
	ErrInvalidData   = errors.New("invalid record data")
	ErrInvalidFilter = errors.New("invalid filter field")
)

// ErrBusy marks transient backend unavailability. Callers retry these up
// to a bounded budget; everything else is fatal on first occurrence.
var ErrBusy = errors.New("backend temporarily unavailable")

// Pipeline errors.
var (
	ErrSnapshotInvalid = errors.New("snapshot failed validation")
	ErrImportInFlight  = errors.New("an import is already in flight")
	ErrNoPlacement     = errors.New("board has no row or column to place orphans in")
)

// Standard collection names for Store.Collection.
const (
	EntitiesCollection      = "entities"
	BoardsCollection        = "boards"
	PeopleCollection        = "people"
	TagsCollection          = "tags"
	CollectionsCollection   = "collections"
	PositionsCollection     = "positions"
	WeeklyItemsCollection   = "weekly_items"
	RelationshipsCollection = "relationships"
)

// StandardCollections lists all collection names for enumeration.
var StandardCollections = []string{
	EntitiesCollection,
	BoardsCollection,
	PeopleCollection,
	TagsCollection,
	CollectionsCollection,
	PositionsCollection,
	WeeklyItemsCollection,
	RelationshipsCollection,
}
