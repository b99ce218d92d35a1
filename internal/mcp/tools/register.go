package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	// Tool 1: shield_profiles
	AddTool(srv, &sdkmcp.Tool{
		Name:        "shield_profiles",
		Description: "List privacy profiles with their merged settings: hourly lookup budget, batch size and decoy bounds, and jitter ranges. Returns the default profile name used when a call omits profile.",
	}, ToolProfiles(d))

	// Tool 2: shield_plan
	AddTool(srv, &sdkmcp.Tool{
		Name:        "shield_plan",
		Description: "Preview how lookups would be shuffled into batches with decoy queries and randomized send times. Sends nothing and consumes no budget. Set detail=true to see every planned query including decoys. Use shield_execute to actually run them.",
	}, ToolPlan(d))

	// Tool 3: shield_execute
	AddTool(srv, &sdkmcp.Tool{
		Name:        "shield_execute",
		Description: "Plan and run lookups through the provider, hidden among decoys and spread over time. Blocks until the last batch completes, which can take minutes for cold profiles. Returns real results in input order; failed lookups are listed by input index and never retried automatically. Set jq to project result bodies. Fails with NETWORK_DISALLOWED while offline.",
	}, ToolExecute(d))

	// Tool 4: shield_mode
	AddTool(srv, &sdkmcp.Tool{
		Name:        "shield_mode",
		Description: "Read or set the network mode. Offline refuses all lookups and cancels an execution in progress.",
	}, ToolMode(d))

	// Tool 5: shield_budget
	AddTool(srv, &sdkmcp.Tool{
		Name:        "shield_budget",
		Description: "Report how many lookups the rolling one-hour window has used against a profile's limit, and when the next slot frees up.",
	}, ToolBudget(d))
}
