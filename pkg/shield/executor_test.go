package shield

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// autoClock returns a test clock that jumps straight to every requested
// wake-up time, so executions run instantly on the planned timeline.
func autoClock(t *testing.T, start time.Time) *clock.TestClock {
	t.Helper()
	ticks := make(chan time.Duration)
	c := clock.NewTestClockWithTickSignal(start, ticks)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case d := <-ticks:
				c.SetTime(c.Now().Add(d))
			case <-done:
				return
			}
		}
	}()
	t.Cleanup(func() { close(done) })
	return c
}

// recorder is a transport that records every call and answers by target.
type recorder struct {
	mu    sync.Mutex
	calls []RequestBody
	at    []time.Time
	clock clock.Clock

	respond func(body RequestBody) (*Response, error)
}

func (r *recorder) Fetch(ctx context.Context, req *Request) (*Response, error) {
	var body RequestBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.calls = append(r.calls, body)
	if r.clock != nil {
		r.at = append(r.at, r.clock.Now())
	}
	r.mu.Unlock()

	if r.respond != nil {
		return r.respond(body)
	}
	out, _ := json.Marshal(map[string]string{"target": body.Target})
	return &Response{OK: true, StatusCode: http.StatusOK, Body: out}, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func batchOf(seq int, sendAt time.Time, queries ...Query) Batch {
	return Batch{Seq: seq, SendAt: sendAt, Endpoint: "http://provider.test/lookup", Queries: queries}
}

func realQuery(i int, target string) Query {
	return Query{ID: target + "-id", Kind: KindTxProof, Target: target, Index: i}
}

func decoy(target string) Query {
	return Query{ID: target + "-id", Kind: KindTxProof, Target: target, IsChaff: true, Index: -1}
}

func threeBatchPlan() *Plan {
	return &Plan{
		CreatedAt: t0,
		Batches: []Batch{
			batchOf(0, at(time.Second), realQuery(0, "a"), decoy("x")),
			batchOf(1, at(20*time.Second), decoy("y"), realQuery(1, "b")),
			batchOf(2, at(50*time.Second), realQuery(2, "c"), decoy("z")),
		},
	}
}

func TestExecutor_Fidelity(t *testing.T) {
	c := autoClock(t, t0)
	rec := &recorder{clock: c}
	plan := threeBatchPlan()

	res, err := NewExecutor(rec, WithClock(c), WithConcurrency(1)).Execute(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, res.Batches, 3)
	assert.Equal(t, t0, res.StartedAt)
	assert.Equal(t, at(50*time.Second), res.FinishedAt)

	for i, br := range res.Batches {
		b := plan.Batches[i]
		assert.Equal(t, b.Seq, br.Seq)
		assert.Equal(t, b.SendAt, br.SendAt)
		assert.Equal(t, b.SendAt, br.SentAt)
		assert.Equal(t, b.Endpoint, br.Endpoint)
		require.Len(t, br.Queries, len(b.Queries))
		for j, q := range br.Queries {
			assert.Equal(t, b.Queries[j].ID, q.ID)
			assert.Equal(t, b.Queries[j].IsChaff, q.IsChaff)
			assert.True(t, q.OK)
			assert.Equal(t, http.StatusOK, q.Status)
			assert.Equal(t, map[string]any{"target": b.Queries[j].Target}, q.Body)
		}
	}

	// Sequential dispatch sends every query in plan order at its batch time.
	want := []string{"a", "x", "y", "b", "c", "z"}
	require.Len(t, rec.calls, len(want))
	for i, body := range rec.calls {
		assert.Equal(t, want[i], body.Target)
		assert.NotNil(t, body.Meta)
	}
	assert.Equal(t, []time.Time{
		at(time.Second), at(time.Second),
		at(20 * time.Second), at(20 * time.Second),
		at(50 * time.Second), at(50 * time.Second),
	}, rec.at)
}

func TestExecutor_RequestShape(t *testing.T) {
	var got *Request
	transport := TransportFunc(func(ctx context.Context, req *Request) (*Response, error) {
		got = req
		return &Response{OK: true, StatusCode: http.StatusNoContent}, nil
	})
	plan := &Plan{CreatedAt: t0, Batches: []Batch{batchOf(0, t0, Query{
		ID: "q", Kind: KindTxRaw, Target: "t", Meta: map[string]any{"height": 1},
	})}}

	header := http.Header{}
	header.Set("X-Client", "wallet")
	res, err := NewExecutor(transport, WithClock(clock.NewTestClock(t0)), WithHeaders(header)).Execute(context.Background(), plan)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "http://provider.test/lookup", got.URL)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "wallet", got.Header.Get("X-Client"))
	assert.JSONEq(t, `{"kind":"tx-raw","target":"t","meta":{"height":1}}`, string(got.Body))

	q := res.Batches[0].Queries[0]
	assert.True(t, q.OK)
	assert.Nil(t, q.Body)
	assert.Equal(t, http.StatusNoContent, q.Status)
}

func TestExecutor_PartialFailure(t *testing.T) {
	c := autoClock(t, t0)
	rec := &recorder{respond: func(body RequestBody) (*Response, error) {
		switch body.Target {
		case "b":
			return nil, errors.New("connection reset")
		case "y":
			return &Response{StatusCode: http.StatusTooManyRequests, Body: []byte(`{"error":"slow down"}`)}, nil
		}
		return &Response{OK: true, StatusCode: http.StatusOK, Body: []byte(`"ok"`)}, nil
	}}

	res, err := NewExecutor(rec, WithClock(c)).Execute(context.Background(), threeBatchPlan())
	require.NoError(t, err)
	require.Len(t, res.Batches, 3)
	assert.Equal(t, 6, rec.count())

	second := res.Batches[1].Queries
	assert.False(t, second[0].OK)
	assert.Equal(t, http.StatusTooManyRequests, second[0].Status)
	assert.Equal(t, "unexpected status 429", second[0].Error)
	assert.Equal(t, map[string]any{"error": "slow down"}, second[0].Body)

	assert.False(t, second[1].OK)
	assert.Equal(t, "connection reset", second[1].Error)

	assert.True(t, res.Batches[0].Queries[0].OK)
	assert.True(t, res.Batches[2].Queries[0].OK)
	assert.Equal(t, "ok", res.Batches[2].Queries[0].Body)
	assert.Equal(t, []uint32{1}, res.FailedReal().ToArray())
}

func TestExecutor_OfflineRejectsBeforeWaiting(t *testing.T) {
	ticks := make(chan time.Duration, 8)
	c := clock.NewTestClockWithTickSignal(t0, ticks)
	rec := &recorder{}

	res, err := NewExecutor(rec, WithClock(c), WithModeGate(NewModeSwitch(ModeOffline))).
		Execute(context.Background(), threeBatchPlan())
	require.ErrorIs(t, err, ErrNetworkDisallowed)
	assert.Nil(t, res)
	assert.Empty(t, ticks)
	assert.Zero(t, rec.count())
}

func TestExecutor_CancelMidPlan(t *testing.T) {
	ticks := make(chan time.Duration)
	c := clock.NewTestClockWithTickSignal(t0, ticks)
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type outcome struct {
		res *ExecutionResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := NewExecutor(rec, WithClock(c)).Execute(ctx, threeBatchPlan())
		done <- outcome{res, err}
	}()

	// First wait: release batch 0.
	<-ticks
	c.SetTime(at(time.Second))
	// Second wait: cancel while batch 1 is pending.
	<-ticks
	cancel()

	out := <-done
	require.ErrorIs(t, out.err, ErrExecutionCanceled)
	require.ErrorIs(t, out.err, context.Canceled)
	require.NotNil(t, out.res)
	require.Len(t, out.res.Batches, 1)
	assert.Equal(t, 0, out.res.Batches[0].Seq)
	assert.Equal(t, 2, rec.count())

	assert.Equal(t, []uint32{1, 2}, out.res.Unsent(threeBatchPlan()).ToArray())
}

func TestExecutor_CancelSkipsQueuedQueries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{respond: func(RequestBody) (*Response, error) {
		cancel()
		return &Response{OK: true, StatusCode: http.StatusOK}, nil
	}}
	plan := &Plan{CreatedAt: t0, Batches: []Batch{batchOf(0, t0,
		realQuery(0, "a"), decoy("v"), realQuery(1, "b"), decoy("w"), realQuery(2, "c"),
	)}}

	res, err := NewExecutor(rec, WithClock(clock.NewTestClock(t0)), WithConcurrency(1)).Execute(ctx, plan)
	require.ErrorIs(t, err, ErrExecutionCanceled)
	assert.Equal(t, 1, rec.count())

	require.Len(t, res.Batches, 1)
	for _, q := range res.Batches[0].Queries[1:] {
		assert.False(t, q.OK, q.Target)
		assert.Equal(t, context.Canceled.Error(), q.Error, q.Target)
	}
}

func TestExecutor_AlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}

	res, err := NewExecutor(rec, WithClock(clock.NewTestClock(t0))).Execute(ctx, threeBatchPlan())
	require.ErrorIs(t, err, ErrExecutionCanceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Batches)
	assert.Zero(t, rec.count())
}

func TestExecutor_GateClosesMidPlan(t *testing.T) {
	c := autoClock(t, t0)
	gate := NewModeSwitch(ModeOnline)
	rec := &recorder{}
	rec.respond = func(body RequestBody) (*Response, error) {
		if body.Target == "x" {
			gate.Set(ModeOffline)
		}
		return &Response{OK: true, StatusCode: http.StatusOK}, nil
	}

	res, err := NewExecutor(rec, WithClock(c), WithModeGate(gate), WithConcurrency(1)).
		Execute(context.Background(), threeBatchPlan())
	require.ErrorIs(t, err, ErrExecutionCanceled)
	require.ErrorIs(t, err, ErrNetworkDisallowed)
	require.Len(t, res.Batches, 1)
	assert.Equal(t, 2, rec.count())
}

func TestExecutor_QueryTimeout(t *testing.T) {
	transport := TransportFunc(func(ctx context.Context, req *Request) (*Response, error) {
		var body RequestBody
		_ = json.Unmarshal(req.Body, &body)
		if body.Target == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &Response{OK: true, StatusCode: http.StatusOK}, nil
	})
	plan := &Plan{CreatedAt: t0, Batches: []Batch{batchOf(0, t0, realQuery(0, "slow"), decoy("fast"), realQuery(1, "quick"))}}

	res, err := NewExecutor(transport, WithClock(clock.NewTestClock(t0)), WithQueryTimeout(20*time.Millisecond)).
		Execute(context.Background(), plan)
	require.NoError(t, err)

	qs := res.Batches[0].Queries
	assert.False(t, qs[0].OK)
	assert.Equal(t, "query timed out after 20ms", qs[0].Error)
	assert.True(t, qs[1].OK)
	assert.True(t, qs[2].OK)
}

func TestExecutor_TransportIgnoringCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	transport := TransportFunc(func(ctx context.Context, req *Request) (*Response, error) {
		<-release
		return &Response{OK: true}, nil
	})
	plan := &Plan{CreatedAt: t0, Batches: []Batch{batchOf(0, t0, realQuery(0, "stuck"))}}

	res, err := NewExecutor(transport, WithClock(clock.NewTestClock(t0)), WithQueryTimeout(10*time.Millisecond)).
		Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Contains(t, res.Batches[0].Queries[0].Error, "timed out")
}

func TestExecutor_TransportPanicAndNilResponse(t *testing.T) {
	transport := TransportFunc(func(ctx context.Context, req *Request) (*Response, error) {
		var body RequestBody
		_ = json.Unmarshal(req.Body, &body)
		switch body.Target {
		case "panic":
			panic("bad transport")
		case "nil":
			return nil, nil
		}
		return &Response{OK: true, StatusCode: http.StatusOK}, nil
	})
	plan := &Plan{CreatedAt: t0, Batches: []Batch{batchOf(0, t0, realQuery(0, "panic"), realQuery(1, "nil"), realQuery(2, "fine"))}}

	res, err := NewExecutor(transport, WithClock(clock.NewTestClock(t0))).Execute(context.Background(), plan)
	require.NoError(t, err)

	qs := res.Batches[0].Queries
	assert.Contains(t, qs[0].Error, "transport panic: bad transport")
	assert.Equal(t, "transport returned no response", qs[1].Error)
	assert.True(t, qs[2].OK)
}

func TestExecutor_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	transport := TransportFunc(func(ctx context.Context, req *Request) (*Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return &Response{OK: true}, nil
	})

	var queries []Query
	for i := range 8 {
		queries = append(queries, realQuery(i, string(rune('a'+i))))
	}
	plan := &Plan{CreatedAt: t0, Batches: []Batch{batchOf(0, t0, queries...)}}

	_, err := NewExecutor(transport, WithClock(clock.NewTestClock(t0)), WithConcurrency(2)).Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExecutor_StateHook(t *testing.T) {
	c := autoClock(t, t0)
	var states []string
	hook := func(s State, batch int) {
		states = append(states, s.String()+":"+string(rune('0'+batch+1)))
	}

	_, err := NewExecutor(&recorder{}, WithClock(c), WithStateHook(hook)).Execute(context.Background(), threeBatchPlan())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"idle:0",
		"waiting:1", "sending:1",
		"waiting:2", "sending:2",
		"waiting:3", "sending:3",
		"done:4",
	}, states)
}

func TestExecutor_EmptyPlan(t *testing.T) {
	res, err := NewExecutor(&recorder{}, WithClock(clock.NewTestClock(t0))).Execute(context.Background(), &Plan{CreatedAt: t0})
	require.NoError(t, err)
	assert.Empty(t, res.Batches)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "waiting", StateWaiting.String())
	assert.Equal(t, "sending", StateSending.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(9)", State(9).String())
}
