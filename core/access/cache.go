package access

import (
	"sync"

	"github.com/trezcool/mafunzo/core/group"
)

// cache kinds; the kind is part of the key so trainee-id and result-id
// sets for the same principal never cross-contaminate.
const (
	cacheTraineeIDs = "accessible-trainee-ids"
	cacheResultIDs  = "accessible-result-ids"
)

// Cache stores derived id sets per (kind, key). Implementations must
// distinguish an empty-but-computed set from a missing entry. There is
// no TTL: staleness is an access-control defect, so invalidation is
// explicit and driven by membership mutations.
type Cache interface {
	Get(kind, key string) (group.IDSet, bool)
	Set(kind, key string, ids group.IDSet)
	Delete(kind, key string)
	Clear()
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]group.IDSet
}

var _ Cache = (*memoryCache)(nil) // interface compliance check

// NewMemoryCache returns a process-scoped in-memory Cache.
// Concurrent recomputation of the same key is idempotent; last write wins.
func NewMemoryCache() Cache {
	return &memoryCache{entries: make(map[string]group.IDSet)}
}

func cacheKey(kind, key string) string { return kind + ":" + key }

func (c *memoryCache) Get(kind, key string) (group.IDSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.entries[cacheKey(kind, key)]
	return ids, ok
}

func (c *memoryCache) Set(kind, key string, ids group.IDSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(kind, key)] = ids
}

func (c *memoryCache) Delete(kind, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(kind, key))
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]group.IDSet)
}
