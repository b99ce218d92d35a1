package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/privacyshield/pkg/shield"
)

// BudgetInput is the input for shield_budget.
type BudgetInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"Profile whose hourly limit to measure against (default: the configured default profile)"`
}

// BudgetOutput is the output for shield_budget.
type BudgetOutput struct {
	Profile string       `json:"profile"`
	Summary string       `json:"summary"`
	Usage   shield.Usage `json:"usage"`
}

// ToolBudget reports rolling-hour lookup consumption. The history is shared by
// all profiles; only the limit differs.
func ToolBudget(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input BudgetInput) (*sdkmcp.CallToolResult, BudgetOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input BudgetInput) (*sdkmcp.CallToolResult, BudgetOutput, error) {
		usage, err := d.Shield.Usage(input.Profile)
		if err != nil {
			return nil, BudgetOutput{}, WrapShieldError(err)
		}
		return nil, BudgetOutput{
			Profile: d.Shield.Registry().Lookup(input.Profile).Name,
			Summary: usageSummary(usage),
			Usage:   usage,
		}, nil
	}
}
