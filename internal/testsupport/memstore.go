package testsupport

import (
	"context"
	"sync"

	"lectern/internal/learned"
)

// MemoryStore is an in-memory learned.Store for tests that do not need
// durability.
type MemoryStore struct {
	mu       sync.Mutex
	mappings map[string]learned.Mapping
	patterns map[string]learned.Mapping
	settings map[string]string
}

var _ learned.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mappings: make(map[string]learned.Mapping),
		patterns: make(map[string]learned.Mapping),
		settings: make(map[string]string),
	}
}

func (s *MemoryStore) LookupMapping(_ context.Context, signature string) (learned.Mapping, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[signature]
	return m, ok, nil
}

func (s *MemoryStore) SaveMapping(_ context.Context, signature string, m learned.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[signature] = m
	return nil
}

func (s *MemoryStore) ListMappings(_ context.Context) (map[string]learned.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]learned.Mapping, len(s.mappings))
	for k, v := range s.mappings {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) DeleteMapping(_ context.Context, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mappings, signature)
	return nil
}

func (s *MemoryStore) LookupPattern(_ context.Context, key string) (learned.Mapping, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.patterns[key]
	return m, ok, nil
}

func (s *MemoryStore) SavePattern(_ context.Context, key string, m learned.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[key] = m
	return nil
}

func (s *MemoryStore) LookupSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.settings[key]
	return value, ok, nil
}

func (s *MemoryStore) SaveSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// PatternCount reports the number of cached pattern keys, for assertions.
func (s *MemoryStore) PatternCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patterns)
}
