package model

import "sort"

// SeenSet holds the notification ids observed in the previous successful
// poll.
type SeenSet map[string]struct{}

// NewSeenSet builds a SeenSet from the given ids.
func NewSeenSet(ids ...string) SeenSet {
	s := make(SeenSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set.
func (s SeenSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in sorted order so the persisted form is stable.
func (s SeenSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Equal reports whether both sets hold exactly the same ids.
func (s SeenSet) Equal(other SeenSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}
