package shield

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// Shield wires a profile registry, a shared rate history, the network mode
// switch and an executor into the plan-commit-execute cycle a client runs.
type Shield struct {
	transport Transport
	registry  *Registry
	history   *History
	mode      *ModeSwitch
	corpus    *FormatCorpus
	src       Source
	clock     clock.Clock
	endpoint  string
	execOpts  []ExecutorOption
}

// Option configures a Shield.
type Option func(*Shield)

// WithRegistry sets the profile registry. Defaults to NewRegistry.
func WithRegistry(r *Registry) Option {
	return func(s *Shield) {
		s.registry = r
	}
}

// WithHistory sets the rate history, typically restored by the caller.
func WithHistory(h *History) Option {
	return func(s *Shield) {
		s.history = h
	}
}

// WithModeSwitch sets the network mode switch. Defaults to online.
func WithModeSwitch(m *ModeSwitch) Option {
	return func(s *Shield) {
		s.mode = m
	}
}

// WithRandom sets the randomness source shared by all plans.
func WithRandom(src Source) Option {
	return func(s *Shield) {
		s.src = src
	}
}

// WithCorpus sets the target format corpus.
func WithCorpus(c *FormatCorpus) Option {
	return func(s *Shield) {
		s.corpus = c
	}
}

// WithShieldClock sets the clock used for planning and execution.
func WithShieldClock(c clock.Clock) Option {
	return func(s *Shield) {
		s.clock = c
	}
}

// WithProviderEndpoint sets the endpoint every batch is addressed to.
func WithProviderEndpoint(endpoint string) Option {
	return func(s *Shield) {
		s.endpoint = endpoint
	}
}

// WithExecutorOptions passes options through to every executor.
func WithExecutorOptions(opts ...ExecutorOption) Option {
	return func(s *Shield) {
		s.execOpts = append(s.execOpts, opts...)
	}
}

// New returns a Shield that executes through t.
func New(t Transport, opts ...Option) (*Shield, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}

	s := &Shield{transport: t}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.history == nil {
		s.history = NewHistory()
	}
	if s.mode == nil {
		s.mode = NewModeSwitch(ModeOnline)
	}
	if s.clock == nil {
		s.clock = clock.NewDefaultClock()
	}
	if s.src == nil {
		s.src = NewCryptoSource()
	}
	s.src = LockedSource(s.src)
	if s.corpus == nil {
		corpus, err := NewFormatCorpus(64)
		if err != nil {
			return nil, fmt.Errorf("creating format corpus: %w", err)
		}
		s.corpus = corpus
	}
	return s, nil
}

// Registry returns the profile registry.
func (s *Shield) Registry() *Registry { return s.registry }

// History returns the shared rate history.
func (s *Shield) History() *History { return s.history }

// Mode returns the network mode switch.
func (s *Shield) Mode() *ModeSwitch { return s.mode }

// Endpoint returns the provider endpoint batches are addressed to.
func (s *Shield) Endpoint() string { return s.endpoint }

func (s *Shield) planner(profile string, extra []Override) (*Planner, error) {
	name, settings, err := s.registry.Resolve(profile, extra...)
	if err != nil {
		return nil, err
	}
	return NewPlanner(settings,
		WithSource(s.src),
		WithEndpoint(s.endpoint),
		WithProfileName(name),
		WithFormatCorpus(s.corpus),
	)
}

// DryRun plans queries against the current history without committing, so
// the budget is not consumed.
func (s *Shield) DryRun(profile string, queries []Query, extra ...Override) (*Plan, error) {
	p, err := s.planner(profile, extra)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return p.Plan(queries, PlanContext{Now: now, History: s.history.Snapshot(now)})
}

// Plan plans queries and commits the plan's lookups to the history in one
// step. The caller is expected to execute the returned plan.
func (s *Shield) Plan(profile string, queries []Query, extra ...Override) (*Plan, error) {
	p, err := s.planner(profile, extra)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	plan, err := s.history.Reserve(now, func(history []time.Time) (*Plan, error) {
		return p.Plan(queries, PlanContext{Now: now, History: history})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("plan committed",
		slog.String("profile", plan.Profile),
		slog.Int("batches", len(plan.Batches)),
		slog.Int("real", plan.RealCount()),
		slog.Int("chaff", plan.ChaffCount()),
		slog.Duration("span", plan.Span()),
	)
	return plan, nil
}

// Execute runs a committed plan. Switching the mode offline cancels it.
func (s *Shield) Execute(ctx context.Context, plan *Plan) (*ExecutionResult, error) {
	if !s.mode.NetworkAllowed() {
		return nil, ErrNetworkDisallowed
	}

	ctx, cancel := s.mode.Watch(ctx)
	defer cancel()

	opts := append([]ExecutorOption{WithClock(s.clock), WithModeGate(s.mode)}, s.execOpts...)
	return NewExecutor(s.transport, opts...).Execute(ctx, plan)
}

// Run plans, commits and executes queries. In offline mode it fails with
// ErrNetworkDisallowed before anything is planned or committed.
func (s *Shield) Run(ctx context.Context, profile string, queries []Query, extra ...Override) (*Plan, *ExecutionResult, error) {
	if !s.mode.NetworkAllowed() {
		return nil, nil, ErrNetworkDisallowed
	}

	plan, err := s.Plan(profile, queries, extra...)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.Execute(ctx, plan)
	if err != nil {
		return plan, res, err
	}

	realOK, chaffOK := res.OKCount()
	slog.Info("plan executed",
		slog.Int("batches", len(res.Batches)),
		slog.Int("real_ok", realOK),
		slog.Int("chaff_ok", chaffOK),
		slog.Int("real_failed", int(res.FailedReal().GetCardinality())),
	)
	return plan, res, nil
}

// Usage reports the rolling-window budget consumption for a profile.
func (s *Shield) Usage(profile string) (Usage, error) {
	_, settings, err := s.registry.Resolve(profile)
	if err != nil {
		return Usage{}, err
	}
	return s.history.Usage(s.clock.Now(), settings.MaxLookupsPerHour), nil
}
