// Package config provides centralized configuration for the dagvfs engine.
package config

import (
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
)

// Config holds engine-wide tunables.
type Config struct {
	// SQLiteDSN is the data source name passed to OpenSQLite when the
	// caller chooses the SQL-backed store over the in-memory one.
	SQLiteDSN string
	// SQLiteBusyTimeout bounds how long a write waits on a locked SQLite
	// database before giving up.
	SQLiteBusyTimeout time.Duration
	// MaxAncestryDepth caps how far an ancestry walk may go: a walk errors
	// once it reaches a commit MaxAncestryDepth or more hops from its
	// starting commit, guarding against unbounded walks over a corrupt or
	// pathologically long DAG. Zero means unbounded.
	MaxAncestryDepth int
}

// DefaultConfig returns the default configuration, reading overrides from
// environment variables.
func DefaultConfig() *Config {
	dsn := os.Getenv("DAGVFS_SQLITE_DSN")
	if dsn == "" {
		dsn = "dagvfs.db"
	}
	busyTimeout := 5 * time.Second
	if v := os.Getenv("DAGVFS_SQLITE_BUSY_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			busyTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	maxDepth := 0
	if v := os.Getenv("DAGVFS_MAX_ANCESTRY_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxDepth = n
		}
	}
	return &Config{
		SQLiteDSN:         dsn,
		SQLiteBusyTimeout: busyTimeout,
		MaxAncestryDepth:  maxDepth,
	}
}

// WithOverrides merges overrides onto a copy of c, leaving overrides' zero
// fields untouched (caller supplies only what it wants to change).
func (c *Config) WithOverrides(overrides *Config) (*Config, error) {
	merged := *c
	if overrides == nil {
		return &merged, nil
	}
	if err := mergo.Merge(&merged, *overrides, mergo.WithOverride); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Global is the application-wide configuration instance.
var Global = DefaultConfig()
