// Package reconcile diffs a poll's threads against the previously seen ids
// to decide what is new and important.
package reconcile

import (
	"github.com/nhle/ghnotify/internal/classify"
	"github.com/nhle/ghnotify/internal/model"
)

// Result is the outcome of reconciling one poll.
type Result struct {
	// Important holds every unread thread with an allowed reason. The badge
	// is computed from it.
	Important []model.Thread

	// NewlyImportant is the subset of Important whose ids were not seen in
	// the previous poll. These are emitted.
	NewlyImportant []model.Thread

	// NextSeen is the set to commit once emission is done: every id in
	// the current poll, important or not.
	NextSeen model.SeenSet
}

// Dedupe collapses repeated ids into one thread. The last occurrence's
// fields win; the position of the first occurrence is kept.
func Dedupe(threads []model.Thread) []model.Thread {
	index := make(map[string]int, len(threads))
	out := make([]model.Thread, 0, len(threads))
	for _, t := range threads {
		if i, ok := index[t.ID]; ok {
			out[i] = t
			continue
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}

// Reconcile computes the important, newly important and next-seen sets for
// the current poll. It never mutates seen.
func Reconcile(current []model.Thread, seen model.SeenSet, allow classify.ReasonSet) Result {
	threads := Dedupe(current)

	res := Result{
		Important: classify.Filter(threads, allow),
		NextSeen:  make(model.SeenSet, len(threads)),
	}

	for _, t := range res.Important {
		if !seen.Contains(t.ID) {
			res.NewlyImportant = append(res.NewlyImportant, t)
		}
	}

	for _, t := range threads {
		res.NextSeen[t.ID] = struct{}{}
	}

	return res
}
