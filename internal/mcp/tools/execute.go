package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/privacyshield/internal/query"
	"github.com/usestring/privacyshield/pkg/shield"
)

// ExecuteInput is the input for shield_execute.
type ExecuteInput struct {
	Profile      string           `json:"profile,omitempty" jsonschema:"Profile name (default: the configured default profile)"`
	Queries      []QueryInput     `json:"queries" jsonschema:"Real lookups to run"`
	Override     *shield.Override `json:"override,omitempty" jsonschema:"Per-call settings applied over the profile"`
	IncludeChaff bool             `json:"include_chaff,omitempty" jsonschema:"Also return decoy results (default: false)"`
	JQ           string           `json:"jq,omitempty" jsonschema:"JQ expression applied to each successful real result body"`
	Deduplicate  bool             `json:"deduplicate,omitempty" jsonschema:"Remove duplicate projected values (default: false)"`
	MaxResults   int              `json:"max_results,omitempty" jsonschema:"Max projected values to return (default: 1000)"`
}

// ExecuteOutput is the output for shield_execute.
type ExecuteOutput struct {
	Profile    string               `json:"profile"`
	Summary    string               `json:"summary"`
	Canceled   bool                 `json:"canceled,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Batches    []BatchView          `json:"batches,omitzero"`
	Results    []shield.QueryResult `json:"results,omitzero"`
	Failed     []int                `json:"failed,omitempty"`
	Unsent     []int                `json:"unsent,omitempty"`
	Projection *query.Result        `json:"projection,omitempty"`
	Hints      []string             `json:"hints,omitempty"`
}

const defaultMaxProjected = 1000

// ToolExecute plans, commits and runs queries, blocking until the last batch
// has been answered. Results are real queries only, in input order, unless
// include_chaff is set.
func ToolExecute(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ExecuteInput) (*sdkmcp.CallToolResult, ExecuteOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ExecuteInput) (*sdkmcp.CallToolResult, ExecuteOutput, error) {
		queries, err := toQueries(input.Queries)
		if err != nil {
			return nil, ExecuteOutput{}, err
		}
		if input.JQ != "" {
			if err := d.Query.ValidateExpression(input.JQ); err != nil {
				return nil, ExecuteOutput{}, ErrInvalidInput(err.Error())
			}
		}

		plan, res, err := d.Shield.Run(ctx, input.Profile, queries, overrides(input.Override)...)
		canceled := errors.Is(err, shield.ErrExecutionCanceled)
		if err != nil && !(canceled && res != nil) {
			return nil, ExecuteOutput{}, WrapShieldError(err)
		}

		output := ExecuteOutput{
			Profile:    plan.Profile,
			Canceled:   canceled,
			StartedAt:  res.StartedAt,
			FinishedAt: res.FinishedAt,
			Batches:    batchViews(plan),
			Failed:     bitmapInts(res.FailedReal().ToArray()),
			Unsent:     bitmapInts(res.Unsent(plan).ToArray()),
		}

		if input.IncludeChaff {
			output.Results = make([]shield.QueryResult, 0, plan.RealCount()+plan.ChaffCount())
			for i := range res.Batches {
				output.Results = append(output.Results, res.Batches[i].Queries...)
			}
		} else {
			output.Results = res.Real()
		}

		if input.JQ != "" {
			maxResults := input.MaxResults
			if maxResults <= 0 {
				maxResults = defaultMaxProjected
			}
			projection, err := d.Query.Project(input.JQ, projectionInputs(res.Real()), query.Options{
				Deduplicate: input.Deduplicate,
				MaxResults:  maxResults,
			})
			if err != nil {
				return nil, ExecuteOutput{}, ErrInvalidInput(err.Error())
			}
			output.Projection = projection
		}

		realOK, _ := res.OKCount()
		output.Summary = printer.Sprintf("%d of %d lookups succeeded across %d of %d batches",
			realOK, plan.RealCount(), len(res.Batches), len(plan.Batches))

		if canceled {
			output.Hints = append(output.Hints,
				printer.Sprintf("Execution stopped early; %d lookups were never sent. Their budget stays reserved for the hour.", len(output.Unsent)))
		}
		if len(output.Failed) > 0 {
			output.Hints = append(output.Hints,
				fmt.Sprintf("Lookups at input indices %v failed; rerun them with shield_execute to plan fresh decoys and timing.", output.Failed))
		}
		return nil, output, nil
	}
}

// projectionInputs labels successful real result bodies by input index.
func projectionInputs(results []shield.QueryResult) []query.Input {
	out := make([]query.Input, 0, len(results))
	for _, r := range results {
		if !r.OK || r.Body == nil {
			continue
		}
		out = append(out, query.Input{Label: fmt.Sprintf("queries[%d]", r.Index), Value: r.Body})
	}
	return out
}

func bitmapInts(vs []uint32) []int {
	if len(vs) == 0 {
		return nil
	}
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = int(v)
	}
	return out
}
