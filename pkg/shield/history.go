package shield

import (
	"sort"
	"sync"
	"time"
)

// History is the rolling record of committed real-lookup times shared by every
// planner drawing on one budget. Callers persist it through Timestamps and
// Load; the shield itself never touches storage.
type History struct {
	mu    sync.Mutex
	times []time.Time
}

// NewHistory returns a history seeded with previously persisted timestamps.
func NewHistory(times ...time.Time) *History {
	h := &History{}
	h.Load(times)
	return h
}

// Load replaces the history contents.
func (h *History) Load(times []time.Time) {
	sorted := append([]time.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	h.mu.Lock()
	defer h.mu.Unlock()
	h.times = sorted
}

// Timestamps returns a copy of every retained timestamp, oldest first.
func (h *History) Timestamps() []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Time(nil), h.times...)
}

// Snapshot drops timestamps that can no longer affect any window at or after
// now and returns a copy of the rest.
func (h *History) Snapshot(now time.Time) []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruneLocked(now)
	return append([]time.Time(nil), h.times...)
}

// Commit records the real lookups of a plan that is going to be executed.
func (h *History) Commit(p *Plan) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commitLocked(p)
}

// Reserve runs plan against a snapshot and commits its result, all under one
// lock, so concurrent planners never spend the same budget twice. Nothing is
// committed when plan fails.
func (h *History) Reserve(now time.Time, plan func(history []time.Time) (*Plan, error)) (*Plan, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pruneLocked(now)
	p, err := plan(append([]time.Time(nil), h.times...))
	if err != nil {
		return nil, err
	}
	h.commitLocked(p)
	return p, nil
}

// Usage reports how much of limit is consumed in the window ending at now.
func (h *History) Usage(now time.Time, limit int) Usage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return measure(h.times, now, limit)
}

func (h *History) pruneLocked(now time.Time) {
	first := inWindow(h.times, now)
	if first > 0 {
		h.times = append([]time.Time(nil), h.times[first:]...)
	}
}

func (h *History) commitLocked(p *Plan) {
	if p == nil {
		return
	}
	h.times = append(h.times, p.RealTimes()...)
	sort.SliceStable(h.times, func(i, j int) bool { return h.times[i].Before(h.times[j]) })
}
