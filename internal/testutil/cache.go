package testutil

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process stand-in for the Redis-backed cache.Store.
// Expiry is ignored.
type MemoryCache struct {
	mu   sync.Mutex
	kv   map[string][]byte
	sets map[string]map[string]struct{}
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		kv:   map[string][]byte{},
		sets: map[string]map[string]struct{}{},
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kv[key], nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.kv, k)
		delete(m.sets, k)
	}
	return nil
}

func (m *MemoryCache) AddToSet(_ context.Context, key, member string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = map[string]struct{}{}
	}
	m.sets[key][member] = struct{}{}
	return nil
}

func (m *MemoryCache) SetMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

// Has reports whether key holds a plain value.
func (m *MemoryCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.kv[key]
	return ok
}
