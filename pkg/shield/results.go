package shield

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Real returns the results of real queries only, in caller input order.
// Chaff results are what callers discard before display.
func (r *ExecutionResult) Real() []QueryResult {
	out := make([]QueryResult, 0)
	for i := range r.Batches {
		for _, q := range r.Batches[i].Queries {
			if !q.IsChaff {
				out = append(out, q)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// FailedReal returns the caller input indices of real queries that did not
// succeed.
func (r *ExecutionResult) FailedReal() *roaring.Bitmap {
	failed := roaring.New()
	for i := range r.Batches {
		for _, q := range r.Batches[i].Queries {
			if !q.IsChaff && !q.OK && q.Index >= 0 {
				failed.Add(uint32(q.Index))
			}
		}
	}
	return failed
}

// Unsent returns the caller input indices of real queries in plan that have
// no result in r, which happens when execution was cancelled.
func (r *ExecutionResult) Unsent(plan *Plan) *roaring.Bitmap {
	planned := roaring.New()
	for i := range plan.Batches {
		for _, q := range plan.Batches[i].Queries {
			if !q.IsChaff && q.Index >= 0 {
				planned.Add(uint32(q.Index))
			}
		}
	}
	sent := roaring.New()
	for i := range r.Batches {
		for _, q := range r.Batches[i].Queries {
			if !q.IsChaff && q.Index >= 0 {
				sent.Add(uint32(q.Index))
			}
		}
	}
	return roaring.AndNot(planned, sent)
}

// OKCount returns how many real and chaff queries succeeded.
func (r *ExecutionResult) OKCount() (reals, chaff int) {
	for i := range r.Batches {
		for _, q := range r.Batches[i].Queries {
			if !q.OK {
				continue
			}
			if q.IsChaff {
				chaff++
			} else {
				reals++
			}
		}
	}
	return reals, chaff
}

// RetryQueries picks the caller's original queries named by indices, ready to
// be planned again.
func RetryQueries(input []Query, indices *roaring.Bitmap) []Query {
	out := make([]Query, 0, indices.GetCardinality())
	it := indices.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		if i < len(input) {
			out = append(out, input[i])
		}
	}
	return out
}
