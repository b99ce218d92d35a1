// Package tools contains MCP tool implementations for the privacy shield.
package tools

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/usestring/privacyshield/pkg/shield"
)

// MIME type constant.
const MimeJSON = "application/json"

// printer formats counts in human-readable summaries.
var printer = message.NewPrinter(language.English)

// QueryInput is one caller lookup.
type QueryInput struct {
	Kind   string         `json:"kind" jsonschema:"Lookup kind, e.g. tx-proof, tx-raw, block-header"`
	Target string         `json:"target" jsonschema:"Transaction id, scripthash or other lookup key"`
	Meta   map[string]any `json:"meta,omitempty" jsonschema:"Opaque parameters forwarded to the provider"`
}

// toQueries converts tool input to planner queries.
func toQueries(in []QueryInput) ([]shield.Query, error) {
	if len(in) == 0 {
		return nil, ErrInvalidInput("queries must not be empty")
	}
	out := make([]shield.Query, len(in))
	for i, q := range in {
		if q.Kind == "" || q.Target == "" {
			return nil, ErrInvalidInput(printer.Sprintf("queries[%d] needs both kind and target", i))
		}
		out[i] = shield.Query{Kind: shield.Kind(q.Kind), Target: q.Target, Meta: q.Meta}
	}
	return out, nil
}

// overrides wraps an optional override for Shield calls.
func overrides(o *shield.Override) []shield.Override {
	if o == nil {
		return nil
	}
	return []shield.Override{*o}
}

// BatchView is a plan batch as shown to a client.
type BatchView struct {
	Seq        int       `json:"seq"`
	SendAt     time.Time `json:"send_at"`
	DelayMs    int64     `json:"delay_ms"`
	Size       int       `json:"size"`
	RealCount  int       `json:"real_count"`
	ChaffCount int       `json:"chaff_count"`
}

// batchViews summarizes plan batches relative to the plan's creation time.
func batchViews(p *shield.Plan) []BatchView {
	out := make([]BatchView, len(p.Batches))
	for i := range p.Batches {
		b := &p.Batches[i]
		out[i] = BatchView{
			Seq:        b.Seq,
			SendAt:     b.SendAt,
			DelayMs:    b.SendAt.Sub(p.CreatedAt).Milliseconds(),
			Size:       len(b.Queries),
			RealCount:  b.RealCount(),
			ChaffCount: b.ChaffCount(),
		}
	}
	return out
}

// planSummary renders a one-line plan description.
func planSummary(p *shield.Plan) string {
	return printer.Sprintf("%d real queries hidden among %d decoys in %d batches over %s",
		p.RealCount(), p.ChaffCount(), len(p.Batches), p.Span().Round(time.Second))
}

// usageSummary renders a one-line budget description.
func usageSummary(u shield.Usage) string {
	s := printer.Sprintf("%d of %d lookups used in the last hour, %d remaining",
		u.Used, u.Limit, u.Remaining)
	if !u.NextFreeAt.IsZero() && u.Remaining == 0 {
		s += printer.Sprintf("; next slot frees at %s", u.NextFreeAt.Format(time.RFC3339))
	}
	return s
}
