// Package shield schedules wallet-monitoring lookups so that the traffic a
// blockchain data provider sees does not map cleanly onto one wallet.
//
// Work happens in two strictly ordered steps. A [Planner] takes the real
// queries a client needs and returns an immutable [Plan]: batches mixing real
// queries with format-identical decoys, each batch stamped with a send time
// that respects an hourly lookup budget. An [Executor] then runs the plan,
// sleeping until each batch is due and issuing one transport request per
// query. Per-query failures are data in the [ExecutionResult]; only invalid
// settings and offline mode are returned as errors.
//
// # Quick Start
//
//	s, err := shield.New(client.New(), shield.WithProviderEndpoint(url))
//	plan, res, err := s.Run(ctx, shield.ProfileColdMonitor, []shield.Query{
//	    {Kind: shield.KindTxProof, Target: txid},
//	})
//	for _, r := range res.Real() {
//	    // chaff results are already filtered out
//	}
//
// # Reproducible Plans
//
// Planning draws all randomness from a [Source]. Tests pass NewSource(seed)
// to get identical plans for identical inputs:
//
//	p, _ := shield.NewPlanner(settings, shield.WithSource(shield.NewSource(1)))
//	plan, _ := p.Plan(queries, shield.PlanContext{Now: now})
//
// # Budget Across Plans
//
// The budget spans planner invocations. [History] records committed lookup
// times; [History.Reserve] plans and commits under one lock so planners that
// share a budget never double-book it.
package shield
