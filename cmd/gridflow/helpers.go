// Shared helpers for gridflow CLI commands.
package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/n7apollo/gridflow/pkg/importer"
	"github.com/n7apollo/gridflow/pkg/sqlite"
	"github.com/n7apollo/gridflow/pkg/types"
)

// validCollectionsStr is a comma-separated list of collection names for
// error output.
var validCollectionsStr = strings.Join(types.StandardCollections, ", ")

// newLogger builds the CLI logger. Verbose mode switches to the
// development encoder with debug level.
func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// cliConfig assembles the store config from flags, config file, and
// defaults.
func cliConfig() (types.Config, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend:    types.BackendSQLite,
		DataDir:    dataDir,
		MaxRetries: configMaxRetries,
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// openStore opens the SQLite store in the resolved data directory. The
// caller must defer store.Close().
func openStore() (sqlite.Store, types.Config, error) {
	cfg, err := cliConfig()
	if err != nil {
		return nil, types.Config{}, err
	}
	store := sqlite.NewStore()
	if err := store.Open(cfg); err != nil {
		return nil, types.Config{}, fmt.Errorf("open store: %w", err)
	}
	return store, cfg, nil
}

// newCoordinator wires an import coordinator over an open store.
func newCoordinator(store types.Store, cfg types.Config, log *zap.Logger) *importer.Coordinator {
	return importer.New(store, cfg, importer.WithLogger(log))
}
