package shield

import (
	"sort"
	"time"
)

// BudgetWindow is the length of the rolling window MaxLookupsPerHour applies to.
// A window is half-open: two lookups exactly one window apart never share one.
const BudgetWindow = time.Hour

// inWindow returns the index of the first timestamp inside the window ending
// at t. times must be sorted ascending.
func inWindow(times []time.Time, t time.Time) int {
	cutoff := t.Add(-BudgetWindow)
	return sort.Search(len(times), func(i int) bool {
		return times[i].After(cutoff)
	})
}

// earliestWithHeadroom returns the earliest time not before t at which n more
// lookups fit in every rolling window. times must be sorted ascending and none
// may be later than t; n must not exceed limit.
func earliestWithHeadroom(times []time.Time, t time.Time, n, limit int) time.Time {
	first := inWindow(times, t)
	excess := len(times) - first + n - limit
	if excess <= 0 {
		return t
	}
	// Wait until the excess-th oldest lookup in the window has aged out.
	return times[first+excess-1].Add(BudgetWindow)
}

// Usage reports rolling-window consumption at a point in time.
type Usage struct {
	At        time.Time `json:"at"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`

	// NextFreeAt is when the oldest in-window lookup ages out. Zero when the
	// window is empty.
	NextFreeAt time.Time `json:"next_free_at,omitzero"`
}

// measure counts lookups in the window ending at t.
func measure(times []time.Time, t time.Time, limit int) Usage {
	first := inWindow(times, t)
	used := 0
	for _, ts := range times[first:] {
		if !ts.After(t) {
			used++
		}
	}
	u := Usage{At: t, Used: used, Limit: limit, Remaining: max(limit-used, 0)}
	if first < len(times) {
		u.NextFreeAt = times[first].Add(BudgetWindow)
	}
	return u
}
