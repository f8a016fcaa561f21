// Package types defines the GridFlow record types, the Store and Collection
// interfaces, schema version tags, and standard error values shared by the
// storage backend, the migration chain, and the entity index.
package types
