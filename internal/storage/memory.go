package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps snapshots in process memory, capped per ticker
type MemoryStore struct {
	mu        sync.RWMutex
	byTicker  map[string][]Snapshot
	maxPerKey int
}

// NewMemoryStore creates a store. maxPerTicker <= 0 keeps everything.
func NewMemoryStore(maxPerTicker int) *MemoryStore {
	return &MemoryStore{
		byTicker:  make(map[string][]Snapshot),
		maxPerKey: maxPerTicker,
	}
}

func (m *MemoryStore) Save(_ context.Context, s Snapshot) error {
	key := strings.ToUpper(s.Ticker)
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.byTicker[key], s)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].GeneratedAt.After(list[j].GeneratedAt)
	})
	if m.maxPerKey > 0 && len(list) > m.maxPerKey {
		list = list[:m.maxPerKey]
	}
	m.byTicker[key] = list
	return nil
}

func (m *MemoryStore) Latest(_ context.Context, ticker string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.byTicker[strings.ToUpper(ticker)]
	if len(list) == 0 {
		return Snapshot{}, ErrNotFound
	}
	return list[0], nil
}

func (m *MemoryStore) History(_ context.Context, ticker string, limit int) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.byTicker[strings.ToUpper(ticker)]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]Snapshot, limit)
	copy(out, list[:limit])
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
