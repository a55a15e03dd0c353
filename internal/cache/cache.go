// Package cache provides a small TTL byte cache for assembled analytics
// snapshots. Two implementations exist: a process-local map for single-node
// deployments and a Redis-backed store for anything shared. Entries are
// immutable once written; a refresh deletes and rewrites, never patches.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Cache stores opaque payloads under string keys with a per-entry TTL.
type Cache interface {
	// Get returns the payload and true when the key exists and is fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes a payload with a TTL. A non-positive TTL means no expiry.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// DeleteByPrefix removes every key starting with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error
}

type memoryEntry struct {
	val       []byte
	expiresAt time.Time // zero means no expiry
}

// Memory is the in-process fallback used when no Redis address is
// configured. Expiry is lazy: stale entries are dropped on read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

// NewMemoryWithClock returns a cache whose expiry checks use the given
// clock. Tests freeze it.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: now}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	e := memoryEntry{val: val}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// DeleteByPrefix implements Cache.
func (m *Memory) DeleteByPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}
