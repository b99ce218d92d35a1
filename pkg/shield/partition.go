package shield

// partition splits n real queries into consecutive groups of between 1 and
// capacity queries, using the fewest groups that fit. Sizes are a random
// composition of n; concatenating the groups restores the input order.
func partition(n, capacity int, src Source) []int {
	if n <= 0 {
		return nil
	}
	if capacity < 1 {
		capacity = 1
	}

	k := (n + capacity - 1) / capacity
	sizes := make([]int, k)
	for i := range sizes {
		sizes[i] = 1
	}

	// Hand out the remaining units one by one to groups with spare room.
	open := make([]int, k)
	for i := range open {
		open[i] = i
	}
	for left := n - k; left > 0; left-- {
		j := src.IntN(len(open))
		g := open[j]
		sizes[g]++
		if sizes[g] == capacity {
			open[j] = open[len(open)-1]
			open = open[:len(open)-1]
		}
	}
	return sizes
}

// chaffRange returns the inclusive bounds on decoys for a batch holding
// reals real queries, so that the batch lands within the size bounds.
// Validated settings guarantee lo <= hi for 1 <= reals <= realCapacity.
func chaffRange(s Settings, reals int) (lo, hi int) {
	lo = max(s.ChaffPerBatchMin, s.BatchMin-reals)
	hi = min(s.ChaffPerBatchMax, s.BatchMax-reals)
	return lo, hi
}

// shuffleWithin returns reals and chaff combined in uniformly random order.
// This is the only step that reorders real queries, and only within a batch.
func shuffleWithin(reals, chaff []Query, src Source) []Query {
	out := make([]Query, 0, len(reals)+len(chaff))
	out = append(out, reals...)
	out = append(out, chaff...)
	for i := len(out) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
