package storage

import (
	"context"
	"sync"
	"time"

	"github.com/prasenjit/route-explorer/internal/models"
	"github.com/prasenjit/route-explorer/internal/stats"
)

// MemoryStore implements HistoryStore with an in-memory slice
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.TestLogEntry // ascending by ID
	nextID  int64
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make([]models.TestLogEntry, 0),
		nextID:  1,
	}
}

// Append stores a copy of e
func (m *MemoryStore) Append(_ context.Context, e *models.TestLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.nextID
	m.nextID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.entries = append(m.entries, *e)
	return nil
}

// restore inserts an entry that already has an ID
func (m *MemoryStore) restore(e models.TestLogEntry) {
	m.entries = append(m.entries, e)
	if e.ID >= m.nextID {
		m.nextID = e.ID + 1
	}
}

// Get retrieves an entry by ID
func (m *MemoryStore) Get(_ context.Context, id int64) (*models.TestLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.entries {
		if m.entries[i].ID == id {
			e := m.entries[i]
			return &e, nil
		}
	}
	return nil, notFound(id)
}

// List returns entries newest first
func (m *MemoryStore) List(_ context.Context, limit, offset int) ([]*models.TestLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	out := make([]*models.TestLogEntry, 0)
	for i := len(m.entries) - 1 - offset; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		e := m.entries[i]
		out = append(out, &e)
	}
	return out, nil
}

// Truncate removes every entry. IDs keep increasing.
func (m *MemoryStore) Truncate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make([]models.TestLogEntry, 0)
	return nil
}

// DeleteOlderThan removes entries created before cutoff
func (m *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.deleteOlderThan(cutoff))), nil
}

func (m *MemoryStore) deleteOlderThan(cutoff time.Time) []int64 {
	kept := m.entries[:0]
	var deleted []int64
	for _, e := range m.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted = append(deleted, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return deleted
}

// Stats aggregates every stored entry
func (m *MemoryStore) Stats(_ context.Context, now time.Time) (*models.HistoryStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := stats.NewCollector()
	for i := range m.entries {
		c.Add(&m.entries[i])
	}
	return c.Stats(now), nil
}

// Close closes the store
func (m *MemoryStore) Close() error {
	return nil
}
