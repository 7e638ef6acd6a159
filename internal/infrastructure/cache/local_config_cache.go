package cache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/verticore/backend/internal/domain/vertical"
)

// LocalConfigCache is the process-local tier for resolved vertical
// configurations. Entries carry the version token computed from the
// tenant's last update, so a stale entry is detected by comparison
// rather than by TTL.
type LocalConfigCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]vertical.CacheEntry
}

// NewLocalConfigCache creates an empty local cache
func NewLocalConfigCache() *LocalConfigCache {
	return &LocalConfigCache{
		entries: make(map[uuid.UUID]vertical.CacheEntry),
	}
}

// Get returns the cached entry for a tenant, or nil on miss
func (c *LocalConfigCache) Get(tenantID uuid.UUID) *vertical.CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[tenantID]
	if !ok {
		return nil
	}
	return &entry
}

// Set stores an entry for a tenant
func (c *LocalConfigCache) Set(tenantID uuid.UUID, entry vertical.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID] = entry
}

// Delete removes a tenant's entry
func (c *LocalConfigCache) Delete(tenantID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
}

// Len returns the number of cached entries
func (c *LocalConfigCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
