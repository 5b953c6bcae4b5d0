// Package testsupport provides shared helpers for package tests: temp-dir
// configs, state stores, and in-memory fakes for the external capabilities.
package testsupport

import (
	"path/filepath"
	"testing"

	"lectern/internal/config"
	"lectern/internal/learned"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.IngestDir = filepath.Join(base, "ingest")
	cfg.Sheet.WorkbookPath = filepath.Join(base, "catalog.xlsx")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaxConcurrent overrides the upload concurrency limit.
func WithMaxConcurrent(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Upload.MaxConcurrent = n
	}
}

// MustOpenStore opens the SQLite state store and closes it on cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *learned.SQLiteStore {
	t.Helper()
	store, err := learned.Open(cfg)
	if err != nil {
		t.Fatalf("open state store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
