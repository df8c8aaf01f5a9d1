package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quietcity/noise-data-pipeline/internal/noise"
)

// MemoryStore is a concurrency-safe in-memory ReadingStore. It mirrors the
// Postgres upsert contract, including the changed-row count, and backs the
// pipeline and API tests.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location ID, value: readings keyed by UTC minute
	data map[string]map[time.Time]noise.Reading
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[time.Time]noise.Reading),
	}
}

// UpsertReadings inserts or overwrites readings keyed by
// (location, timestamp). Rows whose non-key columns are unchanged do not
// count toward the result, matching the relational writer.
func (s *MemoryStore) UpsertReadings(_ context.Context, readings []noise.Reading) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, r := range readings {
		byTime, ok := s.data[r.LocationID]
		if !ok {
			byTime = make(map[time.Time]noise.Reading)
			s.data[r.LocationID] = byTime
		}

		existing, exists := byTime[r.Timestamp]
		if exists && existing.LocationName == r.LocationName && floatPtrEqual(existing.Value, r.Value) {
			continue
		}
		byTime[r.Timestamp] = r
		changed++
	}
	return changed, nil
}

// Latest returns the most recent reading for a location.
func (s *MemoryStore) Latest(_ context.Context, locationID string) (noise.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTime, ok := s.data[locationID]
	if !ok || len(byTime) == 0 {
		return noise.Reading{}, ErrNotFound
	}

	var latest noise.Reading
	for _, r := range byTime {
		if r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	return latest, nil
}

// Range returns readings for a location between from and to (inclusive),
// ordered by timestamp ascending.
func (s *MemoryStore) Range(_ context.Context, locationID string, from, to time.Time) ([]noise.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTime, ok := s.data[locationID]
	if !ok || len(byTime) == 0 {
		return nil, ErrNotFound
	}

	var result []noise.Reading
	for _, r := range byTime {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			result = append(result, r)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Count returns the total number of stored readings across all locations.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	for _, byTime := range s.data {
		n += len(byTime)
	}
	return n
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
