package shield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestPartition_Empty(t *testing.T) {
	assert.Nil(t, partition(0, 3, NewSource(1)))
}

func TestPartition_FewestGroups(t *testing.T) {
	src := NewSource(1)
	assert.Equal(t, []int{3}, partition(3, 3, src))
	assert.Len(t, partition(4, 3, src), 2)
	assert.Equal(t, []int{1, 1, 1}, partition(3, 1, src))
}

func TestPartition_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 200).Draw(t, "n")
		capacity := rapid.IntRange(1, 20).Draw(t, "capacity")
		src := NewSource(rapid.Uint64().Draw(t, "seed"))

		sizes := partition(n, capacity, src)

		if want := (n + capacity - 1) / capacity; len(sizes) != want {
			t.Fatalf("got %d groups, want %d", len(sizes), want)
		}
		sum := 0
		for _, s := range sizes {
			if s < 1 || s > capacity {
				t.Fatalf("group size %d outside [1, %d]", s, capacity)
			}
			sum += s
		}
		if sum != n {
			t.Fatalf("sizes sum to %d, want %d", sum, n)
		}
	})
}

func TestChaffRange(t *testing.T) {
	s := Settings{MaxLookupsPerHour: 6, BatchMin: 3, BatchMax: 5, ChaffPerBatchMin: 2, ChaffPerBatchMax: 3}

	lo, hi := chaffRange(s, 1)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 3, hi)

	lo, hi = chaffRange(s, 3)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 2, hi)

	s.BatchMin, s.ChaffPerBatchMin = 4, 0
	lo, _ = chaffRange(s, 1)
	assert.Equal(t, 3, lo)
}

func TestShuffleWithin_KeepsEveryQuery(t *testing.T) {
	reals := []Query{{ID: "r0", Index: 0}, {ID: "r1", Index: 1}}
	chaff := []Query{{ID: "c0", IsChaff: true, Index: -1}, {ID: "c1", IsChaff: true, Index: -1}}

	out := shuffleWithin(reals, chaff, NewSource(5))
	assert.ElementsMatch(t, append(append([]Query{}, reals...), chaff...), out)
	assert.Equal(t, "r0", reals[0].ID)
}

func TestShuffleWithin_Varies(t *testing.T) {
	reals := []Query{{ID: "r0"}, {ID: "r1"}, {ID: "r2"}}
	chaff := []Query{{ID: "c0"}, {ID: "c1"}, {ID: "c2"}}

	src := NewSource(11)
	seen := map[string]bool{}
	for range 50 {
		out := shuffleWithin(reals, chaff, src)
		seen[out[0].ID] = true
	}
	assert.Greater(t, len(seen), 1)
}
