package cache

import (
	"context"
	"sync"
	"time"
)

// memoryEntry holds a value with its expiry time.
type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store. It is used in tests and as a degraded
// fallback when no Redis server is configured. Expired entries are evicted
// lazily on lookup, matching the external store's TTL semantics.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// now is replaceable for TTL tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the value for key, reporting whether it was present and
// unexpired. Expired entries are removed on lookup.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores the value under key. A ttl <= 0 means no expiry.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones that have
// not been looked up yet.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
