package shield

import (
	"time"
)

// Kind identifies the provider lookup a query performs. The planner treats it
// as opaque; only the transport layer interprets it.
type Kind string

// Known query kinds.
const (
	KindTxProof     Kind = "tx-proof"
	KindTxRaw       Kind = "tx-raw"
	KindBlockHeader Kind = "block-header"
)

// KnownKinds lists the built-in kinds, used when a kind must be drawn without
// any real query to imitate.
var KnownKinds = []Kind{KindTxProof, KindTxRaw, KindBlockHeader}

// Query is a single lookup against the provider.
type Query struct {
	ID      string         `json:"id"`
	Kind    Kind           `json:"kind"`
	Target  string         `json:"target"`
	IsChaff bool           `json:"is_chaff"`
	Meta    map[string]any `json:"meta,omitempty"`

	// Index is the position of a real query in the caller's input list.
	// Chaff queries carry -1.
	Index int `json:"index"`
}

// Batch is a set of queries sent to one endpoint at one moment.
type Batch struct {
	Seq      int       `json:"seq"`
	SendAt   time.Time `json:"send_at"`
	Endpoint string    `json:"endpoint"`
	Queries  []Query   `json:"queries"`
}

// RealCount returns the number of caller-supplied queries in the batch.
func (b *Batch) RealCount() int {
	n := 0
	for i := range b.Queries {
		if !b.Queries[i].IsChaff {
			n++
		}
	}
	return n
}

// ChaffCount returns the number of decoy queries in the batch.
func (b *Batch) ChaffCount() int {
	return len(b.Queries) - b.RealCount()
}

// Plan is the immutable output of the planner. Batches are in send order.
type Plan struct {
	Batches   []Batch   `json:"batches"`
	CreatedAt time.Time `json:"created_at"`
	Profile   string    `json:"profile,omitempty"`
}

// RealCount returns the number of real queries across all batches.
func (p *Plan) RealCount() int {
	n := 0
	for i := range p.Batches {
		n += p.Batches[i].RealCount()
	}
	return n
}

// ChaffCount returns the number of decoy queries across all batches.
func (p *Plan) ChaffCount() int {
	n := 0
	for i := range p.Batches {
		n += p.Batches[i].ChaffCount()
	}
	return n
}

// RealTimes returns one timestamp per real query, in batch order. This is
// what a committed plan contributes to the rate history.
func (p *Plan) RealTimes() []time.Time {
	times := make([]time.Time, 0, p.RealCount())
	for i := range p.Batches {
		b := &p.Batches[i]
		for range b.RealCount() {
			times = append(times, b.SendAt)
		}
	}
	return times
}

// Span returns the time between plan creation and the last batch.
func (p *Plan) Span() time.Duration {
	if len(p.Batches) == 0 {
		return 0
	}
	return p.Batches[len(p.Batches)-1].SendAt.Sub(p.CreatedAt)
}

// QueryResult is the outcome of one query. It mirrors the planned Query.
type QueryResult struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Target  string `json:"target"`
	IsChaff bool   `json:"is_chaff"`
	Index   int    `json:"index"`

	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Body   any    `json:"body,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult mirrors a planned Batch.
type BatchResult struct {
	Seq      int           `json:"seq"`
	SendAt   time.Time     `json:"send_at"`
	Endpoint string        `json:"endpoint"`
	SentAt   time.Time     `json:"sent_at"`
	Queries  []QueryResult `json:"queries"`
}

// ExecutionResult mirrors a Plan one batch per batch. When execution is
// cancelled it holds only the batches that were actually sent.
type ExecutionResult struct {
	Batches    []BatchResult `json:"batches"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
