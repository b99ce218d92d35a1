package shield

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planAt(times ...time.Time) *Plan {
	p := &Plan{CreatedAt: t0}
	for i, ts := range times {
		p.Batches = append(p.Batches, Batch{
			Seq:     i,
			SendAt:  ts,
			Queries: []Query{{Kind: KindTxRaw, Target: "a", Index: i}, {Kind: KindTxRaw, Target: "b", IsChaff: true, Index: -1}},
		})
	}
	return p
}

func TestHistory_LoadSorts(t *testing.T) {
	h := NewHistory(at(time.Minute), at(-time.Minute))
	assert.Equal(t, []time.Time{at(-time.Minute), at(time.Minute)}, h.Timestamps())
}

func TestHistory_SnapshotPrunes(t *testing.T) {
	h := NewHistory(at(-3*time.Hour), at(-time.Hour), at(-time.Minute))

	snap := h.Snapshot(t0)
	assert.Equal(t, []time.Time{at(-time.Minute)}, snap)
	assert.Equal(t, snap, h.Timestamps())

	snap[0] = at(time.Hour)
	assert.Equal(t, at(-time.Minute), h.Timestamps()[0])
}

func TestHistory_CommitCountsRealOnly(t *testing.T) {
	h := NewHistory()
	h.Commit(planAt(at(2*time.Second), at(time.Second)))
	h.Commit(nil)

	assert.Equal(t, []time.Time{at(time.Second), at(2 * time.Second)}, h.Timestamps())
}

func TestHistory_Reserve(t *testing.T) {
	h := NewHistory(at(-2*time.Hour), at(-time.Minute))

	var seen []time.Time
	p, err := h.Reserve(t0, func(history []time.Time) (*Plan, error) {
		seen = history
		return planAt(at(time.Second)), nil
	})
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, []time.Time{at(-time.Minute)}, seen)
	assert.Equal(t, []time.Time{at(-time.Minute), at(time.Second)}, h.Timestamps())
}

func TestHistory_ReserveFailureCommitsNothing(t *testing.T) {
	h := NewHistory()
	boom := errors.New("boom")

	_, err := h.Reserve(t0, func([]time.Time) (*Plan, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.Empty(t, h.Timestamps())
}

func TestHistory_Usage(t *testing.T) {
	h := NewHistory(at(-time.Minute), at(-2*time.Minute))
	u := h.Usage(t0, 30)
	assert.Equal(t, 2, u.Used)
	assert.Equal(t, 28, u.Remaining)
}

func TestHistory_ConcurrentReserveNeverOverspends(t *testing.T) {
	settings := Settings{
		MaxLookupsPerHour: 10,
		BatchMin:          2,
		BatchMax:          4,
		ChaffPerBatchMin:  1,
		ChaffPerBatchMax:  2,
	}
	h := NewHistory()
	src := LockedSource(NewSource(3))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := NewPlanner(settings, WithSource(src))
			if !assert.NoError(t, err) {
				return
			}
			_, err = h.Reserve(t0, func(history []time.Time) (*Plan, error) {
				return p.Plan(realQueries(3), PlanContext{Now: t0, History: history})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	times := h.Timestamps()
	require.Len(t, times, 24)
	if end, n, over := overBudget(times, settings.MaxLookupsPerHour); over {
		t.Fatalf("%d lookups in the window ending %s", n, end)
	}
}

// overBudget checks every rolling window ending at a lookup and reports the
// first one holding more than limit lookups.
func overBudget(times []time.Time, limit int) (time.Time, int, bool) {
	for _, end := range times {
		n := 0
		for _, ts := range times {
			if ts.After(end.Add(-BudgetWindow)) && !ts.After(end) {
				n++
			}
		}
		if n > limit {
			return end, n, true
		}
	}
	return time.Time{}, 0, false
}
