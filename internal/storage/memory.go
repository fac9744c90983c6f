package storage

import (
	"context"
	"sync"
	"time"
)

const defaultMaxEntries = 10_000

// MemoryConfig bounds the in-memory tier. MaxEntries of 0 means the
// default bound.
type MemoryConfig struct {
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// Memory is the always-present first storage tier.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	maxEntries int

	now func() time.Time
}

func NewMemory(c MemoryConfig) *Memory {
	maxEntries := c.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	return &Memory{
		entries:    make(map[string]Entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]

	return entry, ok, nil
}

func (m *Memory) Store(_ context.Context, key string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evict()
	}
	m.entries[key] = entry

	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)

	return nil
}

// evict drops every expired entry, then the oldest live one if the map is
// still full. The caller holds the write lock.
func (m *Memory) evict() {
	now := m.now()
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
		}
	}
	if len(m.entries) < m.maxEntries {
		return
	}

	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, entry := range m.entries {
		if first || entry.AddedAt.Before(oldestAt) {
			oldestKey, oldestAt = key, entry.AddedAt
			first = false
		}
	}
	delete(m.entries, oldestKey)
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}
