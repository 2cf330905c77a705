package booking

import "time"

// ChooseAlternativeDate picks which surfaced date to book when the requested
// check-in is full: the earliest candidate on or after the requested date.
// Candidates strictly before the requested date are never chosen; shifting a
// hut stay earlier than planned is not something to decide on the user's
// behalf. Returns false when no candidate qualifies.
func ChooseAlternativeDate(requested time.Time, candidates []time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, c := range candidates {
		if c.Before(requested) {
			continue
		}
		if !found || c.Before(best) {
			best = c
			found = true
		}
	}
	return best, found
}
