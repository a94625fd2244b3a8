// Package classify decides which notification threads are important
// enough to interrupt the user for.
package classify

import (
	"sort"

	"github.com/nhle/ghnotify/internal/model"
)

// ReasonSet is an allow-list of notification reasons.
type ReasonSet map[string]struct{}

// NewReasonSet builds a ReasonSet from reason strings. Empty strings are
// ignored.
func NewReasonSet(reasons ...string) ReasonSet {
	s := make(ReasonSet, len(reasons))
	for _, r := range reasons {
		if r == "" {
			continue
		}
		s[r] = struct{}{}
	}
	return s
}

// DefaultReasons returns the default allow-list: mention, review_requested
// and author.
func DefaultReasons() ReasonSet {
	return NewReasonSet(
		model.ReasonMention,
		model.ReasonReviewRequested,
		model.ReasonAuthor,
	)
}

// Contains reports whether reason is allowed.
func (s ReasonSet) Contains(reason string) bool {
	_, ok := s[reason]
	return ok
}

// Reasons returns the allowed reasons in sorted order.
func (s ReasonSet) Reasons() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// IsImportant reports whether t is unread and its reason is allowed.
// Unknown reasons are simply not important.
func IsImportant(t model.Thread, allow ReasonSet) bool {
	return t.Unread && allow.Contains(t.Reason)
}

// Filter returns the important subset of threads, preserving order.
func Filter(threads []model.Thread, allow ReasonSet) []model.Thread {
	var out []model.Thread
	for _, t := range threads {
		if IsImportant(t, allow) {
			out = append(out, t)
		}
	}
	return out
}
