package storage

import (
	"context"
	"sync"

	"github.com/medpos/inventory/internal/core/domain"
)

// MemoryCache is the in-memory counterpart of the Redis adapter.
type MemoryCache struct {
	mu      sync.Mutex
	records map[pairKey]domain.InventoryRecord
	guards  map[string]bool
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		records: make(map[pairKey]domain.InventoryRecord),
		guards:  make(map[string]bool),
	}
}

func (c *MemoryCache) GetRecord(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[pairKey{productID, locationID}]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (c *MemoryCache) SetRecord(ctx context.Context, rec domain.InventoryRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[pairKey{rec.ProductID, rec.LocationID}] = rec
	return nil
}

func (c *MemoryCache) DeleteRecord(ctx context.Context, productID, locationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, pairKey{productID, locationID})
	return nil
}

func (c *MemoryCache) AcquireCompletionGuard(ctx context.Context, transferID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.guards[transferID] {
		return false, nil
	}
	c.guards[transferID] = true
	return true, nil
}

func (c *MemoryCache) ReleaseCompletionGuard(ctx context.Context, transferID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.guards, transferID)
	return nil
}
