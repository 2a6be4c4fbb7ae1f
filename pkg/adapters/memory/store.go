package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/reel/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.RunRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.RunRecord),
	}
}

// Save persists the record in memory.
func (s *Store) Save(ctx context.Context, record domain.RunRecord) error {
	record.Trail = slices.Clone(record.Trail)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[record.ID] = record
	return nil
}

// Load retrieves the record from memory.
func (s *Store) Load(ctx context.Context, id string) (domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data[id]
	if !ok {
		return domain.RunRecord{}, domain.ErrRunNotFound
	}

	// Copy on read so callers can't mutate the stored trail.
	record.Trail = slices.Clone(record.Trail)
	return record, nil
}

// List returns records, most recently started first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	s.mu.RLock()
	records := make([]domain.RunRecord, 0, len(s.data))
	for _, r := range s.data {
		r.Trail = slices.Clone(r.Trail)
		records = append(records, r)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}
