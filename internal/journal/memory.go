package journal

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRepository is used when no database is configured.
type MemoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	bySession map[string][]Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bySession: make(map[string][]Entry)}
}

func (m *MemoryRepository) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.SessionID) == "" {
		return ErrNoSession
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.bySession[e.SessionID] = append(m.bySession[e.SessionID], e)
	return nil
}

func (m *MemoryRepository) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.bySession[sessionID]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}
