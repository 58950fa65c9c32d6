package cache

import (
	"fmt"

	"github.com/drborges/apollo-react-spike/internal/models"
	"github.com/drborges/apollo-react-spike/internal/storage"
)

// DeriveBlocked resolves the local-only blocked field for a user id.
// Ids without a store entry resolve to false.
func (c *Cache) DeriveBlocked(id int64) bool {
	return c.fields.Blocked(id)
}

// ToggleUserBlockState flips the blocked flag of a user in the cached result.
// It never contacts the remote service. Ids missing from the cached list fail
// with storage.ErrNotFound and change nothing.
func (c *Cache) ToggleUserBlockState(id int64) (models.ToggleResult, error) {
	c.mu.Lock()
	if _, ok := c.index[id]; !ok {
		c.mu.Unlock()
		return models.ToggleResult{}, fmt.Errorf("toggle user %d: %w", id, storage.ErrNotFound)
	}
	blocked := !c.fields.Blocked(id)
	c.fields.SetBlocked(id, blocked)
	snap, ws := c.commitLocked()
	c.mu.Unlock()

	notify(ws, snap)
	return models.ToggleResult{ID: id, Blocked: blocked}, nil
}
