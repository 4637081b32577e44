package localtime

import (
	"sync"
	"time"
)

type cacheEntry struct {
	boundaries Boundaries
	storedAt   time.Time
}

// BoundaryCache is a TTL cache for computed boundaries. It is purely a
// performance optimization: recomputation always yields the identical
// value, so overwriting an entry concurrently is harmless.
type BoundaryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   TimeProvider
}

// NewBoundaryCache creates a cache with the given TTL. A zero TTL
// disables caching entirely.
func NewBoundaryCache(ttl time.Duration, clock TimeProvider) *BoundaryCache {
	return &BoundaryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached boundaries for key. Entries older than the
// TTL are treated as absent and evicted.
func (bc *BoundaryCache) Get(key string) (Boundaries, bool) {
	if bc.ttl <= 0 {
		return Boundaries{}, false
	}

	bc.mu.RLock()
	entry, ok := bc.entries[key]
	bc.mu.RUnlock()
	if !ok {
		return Boundaries{}, false
	}

	if bc.clock.Now().Sub(entry.storedAt) > bc.ttl {
		bc.mu.Lock()
		// Recheck under the write lock, a concurrent Set may have refreshed it
		if current, ok := bc.entries[key]; ok && current.storedAt.Equal(entry.storedAt) {
			delete(bc.entries, key)
		}
		bc.mu.Unlock()
		return Boundaries{}, false
	}

	return entry.boundaries, true
}

// Set stores boundaries for key with the current timestamp.
func (bc *BoundaryCache) Set(key string, b Boundaries) {
	if bc.ttl <= 0 {
		return
	}

	bc.mu.Lock()
	bc.entries[key] = cacheEntry{boundaries: b, storedAt: bc.clock.Now()}
	bc.mu.Unlock()
}

// Len returns the number of entries currently stored, stale or not.
func (bc *BoundaryCache) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.entries)
}

// Sweep removes all entries older than the TTL.
func (bc *BoundaryCache) Sweep() {
	now := bc.clock.Now()
	bc.mu.Lock()
	defer bc.mu.Unlock()
	for key, entry := range bc.entries {
		if now.Sub(entry.storedAt) > bc.ttl {
			delete(bc.entries, key)
		}
	}
}
