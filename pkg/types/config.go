package types

import "errors"

// Config holds backend selection and parameters for opening a Store.
type Config struct {
	Backend    string `json:"backend" yaml:"backend"`
	DataDir    string `json:"data_dir" yaml:"data_dir"`
	MaxRetries int    `json:"max_retries" yaml:"max_retries"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultMaxRetries bounds retry attempts on transient backend failures
// when Config.MaxRetries is zero.
const DefaultMaxRetries = 3

// Config validation errors.
var (
	ErrBackendEmpty      = errors.New("backend must not be empty")
	ErrBackendUnknown    = errors.New("unknown backend")
	ErrMaxRetriesInvalid = errors.New("max retries must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.MaxRetries < 0 {
		return ErrMaxRetriesInvalid
	}
	return nil
}

// RetryBudget returns the effective retry count for transient failures.
func (c Config) RetryBudget() int {
	if c.MaxRetries == 0 {
		return DefaultMaxRetries
	}
	return c.MaxRetries
}
