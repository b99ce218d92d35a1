package shield

import (
	"fmt"
	"sort"
	"time"
)

// PlanContext is the ambient input to planning.
type PlanContext struct {
	// Now is the schedule origin.
	Now time.Time

	// History holds real-lookup times already committed against the same
	// budget, including batches of earlier plans that have not run yet.
	History []time.Time
}

// Planner turns real queries into a shielded plan. It performs no I/O; given
// the same seed, settings and context it produces the same plan.
type Planner struct {
	settings Settings
	src      Source
	endpoint string
	profile  string
	corpus   *FormatCorpus
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithSource sets the randomness source. Defaults to NewCryptoSource.
// Plan draws from src without locking; wrap it with LockedSource when
// planners sharing it run concurrently.
func WithSource(src Source) PlannerOption {
	return func(p *Planner) {
		p.src = src
	}
}

// WithEndpoint sets the transport endpoint every batch is addressed to.
func WithEndpoint(endpoint string) PlannerOption {
	return func(p *Planner) {
		p.endpoint = endpoint
	}
}

// WithProfileName labels produced plans with the profile they came from.
func WithProfileName(name string) PlannerOption {
	return func(p *Planner) {
		p.profile = name
	}
}

// WithFormatCorpus shares a corpus of observed target formats across
// planners. Real targets are recorded into it on every Plan call.
func WithFormatCorpus(c *FormatCorpus) PlannerOption {
	return func(p *Planner) {
		p.corpus = c
	}
}

// NewPlanner validates settings and returns a planner. Invalid settings fail
// here, before any scheduling happens.
func NewPlanner(s Settings, opts ...PlannerOption) (*Planner, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	p := &Planner{settings: s}
	for _, opt := range opts {
		opt(p)
	}
	if p.src == nil {
		p.src = NewCryptoSource()
	}
	return p, nil
}

// Settings returns the planner's settings.
func (p *Planner) Settings() Settings {
	return p.settings
}

// Plan schedules queries. Every real query lands in exactly one batch; none is
// dropped when the budget is tight, its batch is deferred instead. An empty
// query list yields an empty plan.
func (p *Planner) Plan(queries []Query, pc PlanContext) (*Plan, error) {
	for i, q := range queries {
		if q.Kind == "" {
			return nil, fmt.Errorf("%w: query %d has no kind", ErrInvalidQuery, i)
		}
		if q.Target == "" {
			return nil, fmt.Errorf("%w: query %d has no target", ErrInvalidQuery, i)
		}
	}

	plan := &Plan{
		Batches:   []Batch{},
		CreatedAt: pc.Now,
		Profile:   p.profile,
	}
	if len(queries) == 0 {
		return plan, nil
	}

	reals := make([]Query, len(queries))
	for i, q := range queries {
		reals[i] = Query{Kind: q.Kind, Target: q.Target, Meta: q.Meta, Index: i}
		if p.corpus != nil {
			p.corpus.Observe(q.Kind, q.Target)
		}
	}

	committed := append([]time.Time(nil), pc.History...)
	sort.Slice(committed, func(i, j int) bool { return committed[i].Before(committed[j]) })

	factory := &chaffFactory{src: p.src, corpus: p.corpus}
	ids := make(map[string]struct{}, len(queries)*2)
	intraMin, intraMax := p.settings.IntraBatchJitter()
	interMin, interMax := p.settings.InterBatchJitter()

	var sendAt time.Time
	offset := 0
	for seq, size := range partition(len(reals), p.settings.realCapacity(), p.src) {
		group := reals[offset : offset+size]
		offset += size

		lo, hi := chaffRange(p.settings, size)
		chaff := factory.make(group, intBetween(p.src, lo, hi))
		batchQueries := shuffleWithin(group, chaff, p.src)
		for i := range batchQueries {
			batchQueries[i].ID = p.newID(ids)
		}

		switch {
		case seq > 0:
			sendAt = sendAt.Add(durationBetween(p.src, interMin, interMax))
		case len(committed) > 0 && committed[len(committed)-1].After(pc.Now):
			// An earlier plan is still pending; queue behind its last batch.
			sendAt = committed[len(committed)-1].Add(durationBetween(p.src, interMin, interMax))
		default:
			sendAt = pc.Now.Add(durationBetween(p.src, intraMin, intraMax))
		}
		sendAt = earliestWithHeadroom(committed, sendAt, size, p.settings.MaxLookupsPerHour)
		for range size {
			committed = append(committed, sendAt)
		}

		plan.Batches = append(plan.Batches, Batch{
			Seq:      seq,
			SendAt:   sendAt,
			Endpoint: p.endpoint,
			Queries:  batchQueries,
		})
	}

	return plan, nil
}

// newID draws a query ID not yet used in this plan. IDs come from the same
// source as everything else, so real and chaff IDs look alike.
func (p *Planner) newID(used map[string]struct{}) string {
	for {
		id := fmt.Sprintf("%016x", p.src.Uint64())
		if _, ok := used[id]; !ok {
			used[id] = struct{}{}
			return id
		}
	}
}
