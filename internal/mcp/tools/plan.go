package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/privacyshield/pkg/shield"
)

// PlanInput is the input for shield_plan.
type PlanInput struct {
	Profile  string           `json:"profile,omitempty" jsonschema:"Profile name (default: the configured default profile)"`
	Queries  []QueryInput     `json:"queries" jsonschema:"Real lookups to plan"`
	Override *shield.Override `json:"override,omitempty" jsonschema:"Per-call settings applied over the profile"`
	Detail   bool             `json:"detail,omitempty" jsonschema:"Include every planned query, decoys included (default: false)"`
}

// PlanOutput is the output for shield_plan.
type PlanOutput struct {
	Profile string       `json:"profile"`
	Summary string       `json:"summary"`
	Real    int          `json:"real"`
	Chaff   int          `json:"chaff"`
	SpanMs  int64        `json:"span_ms"`
	Batches []BatchView  `json:"batches,omitzero"`
	Plan    *shield.Plan `json:"plan,omitempty"`
	Budget  shield.Usage `json:"budget"`
	Hints   []string     `json:"hints,omitempty"`
}

// ToolPlan previews how queries would be batched, padded and spaced. The
// preview consumes no budget and sends nothing.
func ToolPlan(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input PlanInput) (*sdkmcp.CallToolResult, PlanOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input PlanInput) (*sdkmcp.CallToolResult, PlanOutput, error) {
		queries, err := toQueries(input.Queries)
		if err != nil {
			return nil, PlanOutput{}, err
		}

		plan, err := d.Shield.DryRun(input.Profile, queries, overrides(input.Override)...)
		if err != nil {
			return nil, PlanOutput{}, WrapShieldError(err)
		}

		usage, err := d.Shield.Usage(plan.Profile)
		if err != nil {
			return nil, PlanOutput{}, WrapShieldError(err)
		}

		output := PlanOutput{
			Profile: plan.Profile,
			Summary: planSummary(plan),
			Real:    plan.RealCount(),
			Chaff:   plan.ChaffCount(),
			SpanMs:  plan.Span().Milliseconds(),
			Batches: batchViews(plan),
			Budget:  usage,
		}
		if input.Detail {
			output.Plan = plan
		}
		if usage.Remaining < plan.RealCount() {
			output.Hints = append(output.Hints,
				printer.Sprintf("Only %d lookups remain this hour; later batches are deferred until the window frees up.", usage.Remaining))
		}
		if !d.Shield.Mode().NetworkAllowed() {
			output.Hints = append(output.Hints, "The shield is offline; shield_execute will refuse to run until shield_mode sets it online.")
		}
		return nil, output, nil
	}
}
