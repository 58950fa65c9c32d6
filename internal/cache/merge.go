package cache

import "github.com/drborges/apollo-react-spike/internal/models"

// MergeUsers appends added to prev unless a user with the same id is already present.
// prev is never modified. The bool reports whether the list grew.
func MergeUsers(prev []models.User, added *models.User) ([]models.User, bool) {
	if added == nil {
		return prev, false
	}
	for _, u := range prev {
		if u.ID == added.ID {
			return prev, false
		}
	}
	next := make([]models.User, 0, len(prev)+1)
	next = append(next, prev...)
	next = append(next, *added)
	return next, true
}
