// Package cache holds the last known position per courier. Entries
// never expire; the cache lives for the process lifetime so that
// viewers joining late still see every courier's last sample.
package cache

import (
	"sync"

	"github.com/swiftdrop/courier-relay/internal/model"
)

// Cache is a mutex-guarded last-position store keyed by courier id.
type Cache struct {
	mu        sync.RWMutex
	positions map[int64]model.Position
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		positions: make(map[int64]model.Position),
	}
}

// Put stores a position, replacing any previous sample for the courier.
func (c *Cache) Put(pos model.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions[pos.CourierID] = pos
}

// Get returns the last known position for a courier.
func (c *Cache) Get(courierID int64) (model.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.positions[courierID]
	return pos, ok
}

// Snapshot returns all cached positions. Order is unspecified; the
// result is a copy safe to use after concurrent Puts.
func (c *Cache) Snapshot() []model.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Position, 0, len(c.positions))
	for _, pos := range c.positions {
		out = append(out, pos)
	}
	return out
}

// FindByPackage returns the cached position tied to a package. Normally
// at most one courier carries a package; if several match, the sample
// with the most recent timestamp wins, ties broken by lower courier id
// so the result does not depend on map iteration order.
func (c *Cache) FindByPackage(packageID int64) (model.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best model.Position
	found := false
	for _, pos := range c.positions {
		if pos.PackageID == nil || *pos.PackageID != packageID {
			continue
		}
		if !found {
			best = pos
			found = true
			continue
		}
		bt, pt := best.Time(), pos.Time()
		if pt.After(bt) || (pt.Equal(bt) && pos.CourierID < best.CourierID) {
			best = pos
		}
	}
	return best, found
}

// Len returns the number of couriers with a cached position.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.positions)
}
