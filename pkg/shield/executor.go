package shield

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"golang.org/x/sync/errgroup"
)

// State is the executor's position in a plan run.
type State int

const (
	StateIdle State = iota
	StateWaiting
	StateSending
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateSending:
		return "sending"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// DefaultConcurrency is the per-batch request fan-out when none is set.
const DefaultConcurrency = 4

// Executor runs plans against a transport. It never reorders batches, never
// overlaps them and never retries.
type Executor struct {
	transport   Transport
	clock       clock.Clock
	gate        ModeGate
	timeout     time.Duration
	concurrency int
	header      http.Header
	onState     func(State, int)
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithClock sets the clock used to wait for batch send times.
func WithClock(c clock.Clock) ExecutorOption {
	return func(e *Executor) {
		e.clock = c
	}
}

// WithModeGate makes Execute refuse to run while the gate reports offline.
func WithModeGate(g ModeGate) ExecutorOption {
	return func(e *Executor) {
		e.gate = g
	}
}

// WithQueryTimeout bounds each query independently. Zero means no bound.
func WithQueryTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithConcurrency sets how many queries of one batch are in flight at once.
// One dispatches sequentially.
func WithConcurrency(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(h http.Header) ExecutorOption {
	return func(e *Executor) {
		e.header = h.Clone()
	}
}

// WithStateHook registers a callback for state transitions. The int is the
// batch index, -1 for Idle and len(batches) for Done.
func WithStateHook(fn func(State, int)) ExecutorOption {
	return func(e *Executor) {
		e.onState = fn
	}
}

// NewExecutor returns an executor bound to t.
func NewExecutor(t Transport, opts ...ExecutorOption) *Executor {
	e := &Executor{
		transport:   t,
		clock:       clock.NewDefaultClock(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs plan batch by batch, sleeping until each batch's send time.
//
// It fails up front with ErrNetworkDisallowed when the mode gate is offline.
// Per-query failures are recorded in the result, never returned. If ctx is
// cancelled (or the gate goes offline) mid-run, the result holds only the
// batches that were sent and the error wraps ErrExecutionCanceled.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*ExecutionResult, error) {
	if e.gate != nil && !e.gate.NetworkAllowed() {
		return nil, ErrNetworkDisallowed
	}

	res := &ExecutionResult{
		Batches:   make([]BatchResult, 0, len(plan.Batches)),
		StartedAt: e.clock.Now(),
	}
	e.report(StateIdle, -1)

	for i := range plan.Batches {
		b := &plan.Batches[i]

		e.report(StateWaiting, i)
		if err := e.waitUntil(ctx, b.SendAt); err != nil {
			res.FinishedAt = e.clock.Now()
			return res, fmt.Errorf("%w before batch %d: %w", ErrExecutionCanceled, b.Seq, err)
		}
		if e.gate != nil && !e.gate.NetworkAllowed() {
			res.FinishedAt = e.clock.Now()
			return res, fmt.Errorf("%w before batch %d: %w", ErrExecutionCanceled, b.Seq, ErrNetworkDisallowed)
		}

		e.report(StateSending, i)
		res.Batches = append(res.Batches, e.sendBatch(ctx, b))

		if err := ctx.Err(); err != nil {
			res.FinishedAt = e.clock.Now()
			return res, fmt.Errorf("%w during batch %d: %w", ErrExecutionCanceled, b.Seq, err)
		}
	}

	res.FinishedAt = e.clock.Now()
	e.report(StateDone, len(plan.Batches))
	return res, nil
}

func (e *Executor) report(s State, batch int) {
	if e.onState != nil {
		e.onState(s, batch)
	}
}

// waitUntil blocks until the clock reaches at or ctx is done.
func (e *Executor) waitUntil(ctx context.Context, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := at.Sub(e.clock.Now())
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.TickAfter(d):
		return nil
	}
}

// sendBatch issues every query of b and waits for all of them. A failing
// query never cancels its siblings.
func (e *Executor) sendBatch(ctx context.Context, b *Batch) BatchResult {
	start := e.clock.Now()
	br := BatchResult{
		Seq:      b.Seq,
		SendAt:   b.SendAt,
		Endpoint: b.Endpoint,
		SentAt:   e.clock.Now(),
		Queries:  make([]QueryResult, len(b.Queries)),
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range b.Queries {
		g.Go(func() error {
			br.Queries[i] = e.sendQuery(ctx, b, &b.Queries[i])
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i := range br.Queries {
		if !br.Queries[i].OK {
			failed++
		}
	}
	slog.Debug("batch sent",
		slog.Int("seq", b.Seq),
		slog.Int("queries", len(b.Queries)),
		slog.Int("failed", failed),
		slog.Int64("duration_ms", e.clock.Now().Sub(start).Milliseconds()),
	)
	return br
}

func (e *Executor) sendQuery(ctx context.Context, b *Batch, q *Query) QueryResult {
	qr := QueryResult{
		ID:      q.ID,
		Kind:    q.Kind,
		Target:  q.Target,
		IsChaff: q.IsChaff,
		Index:   q.Index,
	}

	meta := q.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	body, err := json.Marshal(RequestBody{Kind: q.Kind, Target: q.Target, Meta: meta})
	if err != nil {
		qr.Error = fmt.Sprintf("encoding request: %v", err)
		return qr
	}

	header := e.header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Content-Type", "application/json")

	// Queries still waiting for a slot when ctx ends are never dispatched.
	if err := ctx.Err(); err != nil {
		qr.Error = err.Error()
		return qr
	}

	qctx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.fetch(qctx, &Request{
		Method: http.MethodPost,
		URL:    b.Endpoint,
		Header: header,
		Body:   body,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			qr.Error = fmt.Sprintf("query timed out after %s", e.timeout)
		} else {
			qr.Error = err.Error()
		}
		slog.Debug("query failed",
			slog.Int("seq", b.Seq),
			slog.String("id", q.ID),
			slog.String("kind", string(q.Kind)),
			slog.String("error", qr.Error),
		)
		return qr
	}

	qr.Status = resp.StatusCode
	qr.OK = resp.OK
	if len(resp.Body) > 0 {
		var parsed any
		if json.Unmarshal(resp.Body, &parsed) == nil {
			qr.Body = parsed
		}
	}
	if !resp.OK {
		qr.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return qr
}

type fetchOutcome struct {
	resp *Response
	err  error
}

// fetch calls the transport but returns as soon as ctx is done, even when the
// transport itself ignores cancellation.
func (e *Executor) fetch(ctx context.Context, req *Request) (*Response, error) {
	done := make(chan fetchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchOutcome{err: fmt.Errorf("transport panic: %v", r)}
			}
		}()
		resp, err := e.transport.Fetch(ctx, req)
		if err == nil && resp == nil {
			err = errors.New("transport returned no response")
		}
		done <- fetchOutcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		return out.resp, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
