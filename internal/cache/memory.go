package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a process-local SessionCache for deployments that run a
// single instance without Redis. Expired entries are dropped lazily on read
// and swept on write once the map grows.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	ref       SessionRef
	expiresAt time.Time
}

const memorySweepThreshold = 1024

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (SessionRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return SessionRef{}, ErrCacheMiss
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return SessionRef{}, ErrCacheMiss
	}
	return entry.ref, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, ref SessionRef, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= memorySweepThreshold {
		m.sweepLocked()
	}
	m.entries[key] = memoryEntry{ref: ref, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryCache) sweepLocked() {
	now := time.Now()
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
}
