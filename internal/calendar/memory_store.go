package calendar

import (
	"context"
	"sync"
)

// MemoryFactStore keeps facts in process memory
type MemoryFactStore struct {
	mu    sync.RWMutex
	years map[int][]DayFact
}

// NewMemoryFactStore creates an empty MemoryFactStore
func NewMemoryFactStore() *MemoryFactStore {
	return &MemoryFactStore{years: make(map[int][]DayFact)}
}

// LoadYear returns a copy of the facts stored for year
func (m *MemoryFactStore) LoadYear(_ context.Context, year int) ([]DayFact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]DayFact(nil), m.years[year]...), nil
}

// ReplaceYear replaces all facts for year
func (m *MemoryFactStore) ReplaceYear(_ context.Context, year int, facts []DayFact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(facts) == 0 {
		delete(m.years, year)
		return nil
	}
	m.years[year] = append([]DayFact(nil), facts...)
	return nil
}
