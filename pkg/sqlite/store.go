// Package sqlite provides the public factory for the SQLite store backend
// while keeping the implementation internal.
package sqlite

import (
	"github.com/n7apollo/gridflow/internal/sqlite"
	"github.com/n7apollo/gridflow/pkg/types"
)

// NewStore creates a new SQLite store instance. The store is not open;
// call Open with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewStore()
//	err := store.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".gridflow",
//	})
//	defer store.Close()
func NewStore() Store {
	return sqlite.NewStore()
}

// Store is the SQLite rendition of types.Store with its open/close
// lifecycle exposed.
type Store interface {
	types.Store
	Open(config types.Config) error
}
