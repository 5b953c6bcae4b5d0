package learned

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lectern/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; operators clear the state database after a mismatch.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// SQLiteStore is the production Store backed by a single SQLite file in the
// state directory.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// Open initializes or connects to the state database and verifies the schema.
func Open(cfg *config.Config) (*SQLiteStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "lectern.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// LookupMapping returns the learned mapping for a filename signature.
func (s *SQLiteStore) LookupMapping(ctx context.Context, signature string) (Mapping, bool, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return Mapping{}, false, nil
	}
	var m Mapping
	err := s.db.QueryRowContext(ctx,
		"SELECT library_id, library_name FROM learned_mappings WHERE signature = ?",
		signature,
	).Scan(&m.LibraryID, &m.LibraryName)
	if errors.Is(err, sql.ErrNoRows) {
		return Mapping{}, false, nil
	}
	if err != nil {
		return Mapping{}, false, fmt.Errorf("lookup mapping: %w", err)
	}
	return m, true, nil
}

// SaveMapping upserts a learned mapping.
func (s *SQLiteStore) SaveMapping(ctx context.Context, signature string, m Mapping) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errors.New("mapping signature required")
	}
	if m.LibraryID == "" {
		return errors.New("mapping library id required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO learned_mappings (signature, library_id, library_name, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(signature) DO UPDATE SET
            library_id = excluded.library_id,
            library_name = excluded.library_name,
            updated_at = excluded.updated_at`,
		signature, m.LibraryID, m.LibraryName, now, now,
	)
	if err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	return nil
}

// ListMappings returns all learned mappings keyed by signature.
func (s *SQLiteStore) ListMappings(ctx context.Context) (map[string]Mapping, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT signature, library_id, library_name FROM learned_mappings ORDER BY signature")
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	mappings := make(map[string]Mapping)
	for rows.Next() {
		var signature string
		var m Mapping
		if err := rows.Scan(&signature, &m.LibraryID, &m.LibraryName); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings[signature] = m
	}
	return mappings, rows.Err()
}

// DeleteMapping removes one learned mapping.
func (s *SQLiteStore) DeleteMapping(ctx context.Context, signature string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM learned_mappings WHERE signature = ?", strings.TrimSpace(signature))
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	return nil
}

// LookupPattern returns the cached mapping for a pattern key.
func (s *SQLiteStore) LookupPattern(ctx context.Context, key string) (Mapping, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Mapping{}, false, nil
	}
	var m Mapping
	err := s.db.QueryRowContext(ctx,
		"SELECT library_id, library_name FROM pattern_cache WHERE pattern_key = ?",
		key,
	).Scan(&m.LibraryID, &m.LibraryName)
	if errors.Is(err, sql.ErrNoRows) {
		return Mapping{}, false, nil
	}
	if err != nil {
		return Mapping{}, false, fmt.Errorf("lookup pattern: %w", err)
	}
	return m, true, nil
}

// SavePattern upserts one pattern-cache entry.
func (s *SQLiteStore) SavePattern(ctx context.Context, key string, m Mapping) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("pattern key required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pattern_cache (pattern_key, library_id, library_name, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(pattern_key) DO UPDATE SET
            library_id = excluded.library_id,
            library_name = excluded.library_name,
            updated_at = excluded.updated_at`,
		key, m.LibraryID, m.LibraryName, now,
	)
	if err != nil {
		return fmt.Errorf("save pattern: %w", err)
	}
	return nil
}

// LookupSetting returns a persisted setting value.
func (s *SQLiteStore) LookupSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup setting: %w", err)
	}
	return value, true, nil
}

// SaveSetting upserts a setting value.
func (s *SQLiteStore) SaveSetting(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("setting key required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}
