package storage

import "errors"

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// FieldStore holds local-only user fields keyed by user id.
// Entries are created lazily; an absent entry reads as the zero value.
type FieldStore interface {
	Blocked(id int64) bool
	SetBlocked(id int64, blocked bool)
	// Reset drops every entry.
	Reset()
	Len() int
}
