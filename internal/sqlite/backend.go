// Package sqlite implements the SQLite storage backend for GridFlow.
// SQLite is the embedded rendition of the application's client-side keyed
// store: one file per data directory, one table per collection, with
// multi-collection transactions mapped onto SQLite transactions.
// Referential integrity is managed at the application level (the entity
// index and validator own the cascades), so the schema carries indexes but
// no foreign keys.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/n7apollo/gridflow/pkg/types"
)

// DBFileName is the SQLite database file created inside DataDir.
const DBFileName = "gridflow.db"

// Store implements types.Store on a single SQLite database file.
type Store struct {
	mu     sync.RWMutex
	open   bool
	config types.Config
	db     *sql.DB
}

// NewStore creates a new SQLite store instance. The store is not open;
// call Open with a Config to initialize.
func NewStore() *Store {
	return &Store{}
}

// Open initializes the store with the given configuration. Creates DataDir
// if it does not exist and applies the schema. Existing data is preserved.
// Returns ErrAlreadyOpen if called while already open.
func (s *Store) Open(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return types.ErrAlreadyOpen
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return wrapBusy(fmt.Errorf("opening database: %w", err))
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return wrapBusy(fmt.Errorf("setting busy timeout: %w", err))
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return wrapBusy(fmt.Errorf("applying schema: %w", err))
	}

	s.db = db
	s.config = config
	s.open = true
	return nil
}

// Close releases the database connection. Idempotent: multiple calls
// succeed. After Close, collection operations return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	s.db = nil
	s.open = false
	return nil
}

// Collection returns a Collection accessor for the given name.
// Returns ErrCollectionNotFound if the name is not a standard collection,
// ErrStoreClosed if the store is not open.
func (s *Store) Collection(name string) (types.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.open {
		return nil, types.ErrStoreClosed
	}
	if !knownCollection(name) {
		return nil, types.ErrCollectionNotFound
	}
	return &collection{name: name, store: s}, nil
}

// Transaction runs fn inside one SQLite transaction spanning the named
// collections. Collections not named in the declaration are unavailable
// through the Tx. The transaction commits only if fn returns nil.
func (s *Store) Transaction(mode types.TxMode, collections []string, fn func(tx types.Tx) error) error {
	if mode != types.TxRead && mode != types.TxReadWrite {
		return fmt.Errorf("%w: unknown transaction mode %q", types.ErrInvalidData, mode)
	}
	declared := make(map[string]bool, len(collections))
	for _, name := range collections {
		if !knownCollection(name) {
			return fmt.Errorf("%w: %s", types.ErrCollectionNotFound, name)
		}
		declared[name] = true
	}

	// A read-write transaction excludes all other access; reads share.
	if mode == types.TxReadWrite {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	if !s.open {
		return types.ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return wrapBusy(fmt.Errorf("beginning transaction: %w", err))
	}

	t := &storeTx{tx: tx, declared: declared}
	if err := fn(t); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapBusy(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// storeTx provides collection access bound to one open *sql.Tx.
type storeTx struct {
	tx       *sql.Tx
	declared map[string]bool
}

// Collection returns a Tx-scoped accessor for a declared collection.
func (t *storeTx) Collection(name string) (types.Table, error) {
	if !t.declared[name] {
		return nil, fmt.Errorf("%w: %s not declared in transaction", types.ErrCollectionNotFound, name)
	}
	return &collection{name: name, q: t.tx}, nil
}

// querier abstracts *sql.DB and *sql.Tx for the per-collection helpers.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// knownCollection reports whether name is a standard collection.
func knownCollection(name string) bool {
	for _, c := range types.StandardCollections {
		if c == name {
			return true
		}
	}
	return false
}

// newUUID generates a UUID v7 string for store-minted record IDs.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// UUID v4 never fails to generate.
		return uuid.New().String()
	}
	return id.String()
}

// wrapBusy tags transient driver errors with types.ErrBusy so callers can
// distinguish them from permanent transaction failures.
func wrapBusy(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_LOCKED") {
		return fmt.Errorf("%w: %v", types.ErrBusy, err)
	}
	return err
}
