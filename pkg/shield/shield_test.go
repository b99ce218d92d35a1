package shield

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShield(t *testing.T, tr Transport, c clock.Clock, opts ...Option) *Shield {
	t.Helper()
	base := []Option{
		WithRandom(NewSource(17)),
		WithShieldClock(c),
		WithProviderEndpoint("http://provider.test/lookup"),
	}
	s, err := New(tr, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func TestNew_RequiresTransport(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestShield_Defaults(t *testing.T) {
	s, err := New(&recorder{})
	require.NoError(t, err)

	assert.Equal(t, DefaultProfile, s.Registry().Default())
	assert.True(t, s.Mode().NetworkAllowed())
	assert.Empty(t, s.History().Timestamps())
	assert.Empty(t, s.Endpoint())
}

func TestShield_DryRunSpendsNothing(t *testing.T) {
	rec := &recorder{}
	s := newTestShield(t, rec, clock.NewTestClock(t0))

	plan, err := s.DryRun(ProfileColdMonitor, realQueries(4))
	require.NoError(t, err)
	assert.Equal(t, ProfileColdMonitor, plan.Profile)
	assert.Equal(t, 4, plan.RealCount())
	assert.Empty(t, s.History().Timestamps())
	assert.Zero(t, rec.count())

	for _, b := range plan.Batches {
		assert.Equal(t, "http://provider.test/lookup", b.Endpoint)
	}
}

func TestShield_PlanCommits(t *testing.T) {
	s := newTestShield(t, &recorder{}, clock.NewTestClock(t0))

	first, err := s.Plan("", realQueries(3))
	require.NoError(t, err)
	assert.Equal(t, first.RealTimes(), s.History().Timestamps())

	second, err := s.Plan("", realQueries(2))
	require.NoError(t, err)
	assert.Len(t, s.History().Timestamps(), 5)

	// The second plan queues behind the first one.
	last := first.Batches[len(first.Batches)-1].SendAt
	assert.True(t, second.Batches[0].SendAt.After(last))
}

func TestShield_Run(t *testing.T) {
	c := autoClock(t, t0)
	rec := &recorder{}
	s := newTestShield(t, rec, c)

	queries := realQueries(5)
	plan, res, err := s.Run(context.Background(), ProfileBurstSync, queries, Override{MaxLookupsPerHour: Ptr(100)})
	require.NoError(t, err)

	assert.Equal(t, ProfileBurstSync, plan.Profile)
	assert.Equal(t, len(plan.Batches), len(res.Batches))
	assert.Equal(t, plan.RealCount()+plan.ChaffCount(), rec.count())

	reals := res.Real()
	require.Len(t, reals, 5)
	for i, q := range reals {
		assert.Equal(t, i, q.Index)
		assert.Equal(t, queries[i].Target, q.Target)
		assert.True(t, q.OK)
	}

	usage, err := s.Usage(ProfileBurstSync)
	require.NoError(t, err)
	assert.Equal(t, 5, usage.Used)
	assert.Equal(t, 355, usage.Remaining)
}

func TestShield_RunOffline(t *testing.T) {
	rec := &recorder{}
	s := newTestShield(t, rec, clock.NewTestClock(t0), WithModeSwitch(NewModeSwitch(ModeOffline)))

	plan, res, err := s.Run(context.Background(), "", realQueries(2))
	require.ErrorIs(t, err, ErrNetworkDisallowed)
	assert.Nil(t, plan)
	assert.Nil(t, res)
	assert.Empty(t, s.History().Timestamps())
	assert.Zero(t, rec.count())

	_, err = s.Execute(context.Background(), &Plan{})
	require.ErrorIs(t, err, ErrNetworkDisallowed)
}

func TestShield_RunInvalidOverride(t *testing.T) {
	s := newTestShield(t, &recorder{}, clock.NewTestClock(t0))

	_, _, err := s.Run(context.Background(), "", realQueries(2), Override{BatchMax: Ptr(0)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSettings))
	assert.Empty(t, s.History().Timestamps())
}

func TestShield_GoingOfflineCancelsRun(t *testing.T) {
	ticks := make(chan time.Duration)
	c := clock.NewTestClockWithTickSignal(t0, ticks)
	rec := &recorder{}
	s := newTestShield(t, rec, c)

	type outcome struct {
		plan *Plan
		res  *ExecutionResult
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		plan, res, err := s.Run(context.Background(), "", realQueries(2))
		done <- outcome{plan, res, err}
	}()

	<-ticks
	s.Mode().Set(ModeOffline)

	out := <-done
	require.ErrorIs(t, out.err, ErrExecutionCanceled)
	require.NotNil(t, out.plan)
	require.NotNil(t, out.res)
	assert.Empty(t, out.res.Batches)
	assert.Zero(t, rec.count())

	// The plan was committed before it ran, so its lookups stay spent.
	assert.Len(t, s.History().Timestamps(), 2)
}

func TestShield_UsageUnknownProfile(t *testing.T) {
	s := newTestShield(t, &recorder{}, clock.NewTestClock(t0), WithHistory(NewHistory(at(-time.Minute))))

	usage, err := s.Usage("whatever")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Used)
	assert.Equal(t, DefaultSettings().MaxLookupsPerHour, usage.Limit)
	assert.Equal(t, t0, usage.At)
}

func TestShield_ExecutorOptions(t *testing.T) {
	c := autoClock(t, t0)
	var seen []State
	s := newTestShield(t, &recorder{}, c, WithExecutorOptions(WithStateHook(func(st State, _ int) {
		seen = append(seen, st)
	})))

	_, _, err := s.Run(context.Background(), "", realQueries(1))
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	assert.Equal(t, StateDone, seen[len(seen)-1])
}
