package cache

import (
	"sync"

	"github.com/drborges/apollo-react-spike/internal/models"
	"github.com/drborges/apollo-react-spike/internal/storage"
)

// Snapshot is an immutable view of the cached user list with local fields joined in.
type Snapshot struct {
	Users   []models.User
	Loaded  bool
	Version uint64
}

type watcher struct {
	id uint64
	fn func(Snapshot)
}

// Cache holds the last remote user-list result for one viewer together with the
// local field store used to derive client-only fields.
type Cache struct {
	mu       sync.Mutex
	fields   storage.FieldStore
	users    []models.User
	index    map[int64]int
	loaded   bool
	version  uint64
	watchers []watcher
	nextID   uint64
}

// New creates an empty cache backed by the provided field store.
func New(fields storage.FieldStore) *Cache {
	return &Cache{
		fields: fields,
		index:  make(map[int64]int),
	}
}

// WriteUsers replaces the cached remote result.
func (c *Cache) WriteUsers(users []models.User) {
	c.mu.Lock()
	c.users = make([]models.User, 0, len(users))
	c.index = make(map[int64]int, len(users))
	for _, u := range users {
		if _, dup := c.index[u.ID]; dup {
			continue
		}
		u.Blocked = false
		c.index[u.ID] = len(c.users)
		c.users = append(c.users, u)
	}
	c.loaded = true
	snap, ws := c.commitLocked()
	c.mu.Unlock()
	notify(ws, snap)
}

// Users returns the cached list joined with local fields, in display order.
func (c *Cache) Users() []models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joinLocked()
}

// Snapshot returns the current state without registering a watcher.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Users: c.joinLocked(), Loaded: c.loaded, Version: c.version}
}

// Loaded reports whether a remote result has been written since the last reset.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// MergeUserAdded appends a pushed user to the end of the cached list.
// A nil payload or an id that is already present leaves the list unchanged and returns false.
func (c *Cache) MergeUserAdded(added *models.User) bool {
	if added == nil {
		return false
	}
	u := *added
	u.Blocked = false

	c.mu.Lock()
	next, grew := MergeUsers(c.users, &u)
	if !grew {
		c.mu.Unlock()
		return false
	}
	c.users = next
	c.index[u.ID] = len(next) - 1
	snap, ws := c.commitLocked()
	c.mu.Unlock()
	notify(ws, snap)
	return true
}

// Reset drops the cached result and every local field entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.users = nil
	c.index = make(map[int64]int)
	c.loaded = false
	c.fields.Reset()
	snap, ws := c.commitLocked()
	c.mu.Unlock()
	notify(ws, snap)
}

// Watch registers fn to be called with a fresh snapshot after every change.
// Callbacks run outside the cache lock; concurrent changes may deliver snapshots
// out of order, so consumers should discard a Version older than one already seen.
// The returned func removes the watcher.
func (c *Cache) Watch(fn func(Snapshot)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.watchers = append(c.watchers, watcher{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, w := range c.watchers {
				if w.id == id {
					c.watchers = append(c.watchers[:i:i], c.watchers[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Cache) joinLocked() []models.User {
	out := make([]models.User, len(c.users))
	for i, u := range c.users {
		u.Blocked = c.fields.Blocked(u.ID)
		out[i] = u
	}
	return out
}

func (c *Cache) commitLocked() (Snapshot, []watcher) {
	c.version++
	snap := Snapshot{Users: c.joinLocked(), Loaded: c.loaded, Version: c.version}
	ws := make([]watcher, len(c.watchers))
	copy(ws, c.watchers)
	return snap, ws
}

func notify(ws []watcher, snap Snapshot) {
	for _, w := range ws {
		w.fn(snap)
	}
}
