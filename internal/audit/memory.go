package audit

import (
	"context"
	"sync"
)

// MemorySink keeps records in memory. Used in tests and when no MongoDB is
// configured. Retention is not enforced; the sink only caps its size.
type MemorySink struct {
	mu      sync.RWMutex
	records []Record
	max     int
}

// NewMemorySink creates a memory sink retaining at most max records
// (0 means unlimited).
func NewMemorySink(max int) *MemorySink {
	return &MemorySink{max: max}
}

// Insert appends the record, dropping the oldest when over capacity.
func (s *MemorySink) Insert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	if s.max > 0 && len(s.records) > s.max {
		s.records = s.records[len(s.records)-s.max:]
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *MemorySink) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Record, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
