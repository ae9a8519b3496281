package memory

import (
	"context"
	"sync"

	"github.com/aretw0/convo/pkg/domain"
)

// Cache implements ports.StateCache in memory.
// Safe for concurrent use.
type Cache struct {
	data map[string]*domain.State
	mu   sync.RWMutex
}

// NewCache creates a new in-memory cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*domain.State),
	}
}

// Set stores a deep copy of state.
func (c *Cache) Set(ctx context.Context, versionID string, state *domain.State) error {
	copied := state.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[versionID] = copied
	return nil
}

// Get returns a deep copy of the cached state.
func (c *Cache) Get(ctx context.Context, versionID string) (*domain.State, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.data[versionID]
	if !ok {
		return nil, domain.ErrStateNotCached
	}
	return state.Clone(), nil
}

// Delete removes the entry.
func (c *Cache) Delete(ctx context.Context, versionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, versionID)
	return nil
}

// Versions returns the cached version IDs.
func (c *Cache) Versions(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.data))
	for id := range c.data {
		ids = append(ids, id)
	}
	return ids, nil
}
