package memory

import (
	"sync"

	"github.com/drborges/apollo-react-spike/internal/storage"
)

// Ensure Store satisfies the storage.FieldStore interface at compile time.
var _ storage.FieldStore = (*Store)(nil)

// Store keeps local fields in process memory for the lifetime of a session.
type Store struct {
	mu      sync.RWMutex
	blocked map[int64]bool
}

// NewFieldStore returns an empty store.
func NewFieldStore() *Store {
	return &Store{blocked: make(map[int64]bool)}
}

// Blocked returns the stored flag for id, or false when no entry exists.
func (s *Store) Blocked(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocked[id]
}

// SetBlocked creates or overwrites the entry for id.
func (s *Store) SetBlocked(id int64, blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[id] = blocked
}

// Reset discards all entries.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked = make(map[int64]bool)
}

// Len reports how many ids have an entry.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocked)
}
