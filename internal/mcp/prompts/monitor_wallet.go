package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleMonitorWalletPrivately implements the private wallet monitoring workflow.
func HandleMonitorWalletPrivately(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		profile := cfg.DefaultProfile
		kind := "tx-proof"
		if req != nil && req.Params != nil && req.Params.Arguments != nil {
			if v := req.Params.Arguments["profile"]; v != "" {
				profile = v
			}
			if v := req.Params.Arguments["kind"]; v != "" {
				kind = v
			}
		}

		var sb strings.Builder

		sb.WriteString("# Monitor a Wallet Privately\n\n")
		sb.WriteString("You are checking a Bitcoin wallet's transactions through a third-party provider. ")
		sb.WriteString("The provider must not learn which transactions belong to the wallet, so every lookup goes through the privacy shield: ")
		sb.WriteString("real lookups are shuffled among decoy lookups, grouped into batches, and sent at randomized times under an hourly budget.\n\n")

		sb.WriteString("## Workflow Steps\n\n")
		sb.WriteString("1. **Choose a profile** - `shield_profiles` lists them with their budgets and decoy counts\n")
		fmt.Fprintf(&sb, "   - Requested profile: `%s`\n", profile)
		if len(cfg.Profiles) > 0 {
			fmt.Fprintf(&sb, "   - Available: %s\n", strings.Join(cfg.Profiles, ", "))
		}
		sb.WriteString("   - Rarely used wallets fit `cold-monitor`; catching up after a long offline period fits `burst-sync`\n\n")
		sb.WriteString("2. **Check the budget** - `shield_budget` shows how much of the rolling hour is used\n")
		sb.WriteString("   - If the budget is nearly spent, batches will be deferred; tell the user how long that takes\n\n")
		sb.WriteString("3. **Preview** - `shield_plan` with the wallet's lookups\n")
		sb.WriteString("   - Report the number of batches and the total span before running anything\n\n")
		sb.WriteString("4. **Execute** - `shield_execute` with the same lookups\n")
		sb.WriteString("   - This blocks until the last batch is answered; cold profiles can take many minutes\n")
		sb.WriteString("   - Use `jq` to pull out only the fields you need from each result body\n\n")
		sb.WriteString("5. **Handle failures** - lookups listed in `failed` or `unsent` are never retried automatically\n")
		sb.WriteString("   - Rerun only those lookups with a new `shield_execute` call so they get fresh decoys and timing\n\n")

		sb.WriteString("## Suggested Tools\n\n")
		sb.WriteString("```\n")
		fmt.Fprintf(&sb, "shield_plan(profile: %q, queries: [{kind: %q, target: \"<txid>\"}, ...])\n", profile, kind)
		fmt.Fprintf(&sb, "shield_execute(profile: %q, queries: [...], jq: \".block_height\")\n", profile)
		sb.WriteString("```\n\n")

		sb.WriteString("## Rules\n\n")
		sb.WriteString("- Never look up wallet transactions any other way; direct lookups defeat the shield\n")
		sb.WriteString("- Do not repeat or echo transaction ids back in summaries unless the user asks\n")
		sb.WriteString("- Results with `is_chaff: true` are decoys; ignore them\n")
		sb.WriteString("- If a tool returns NETWORK_DISALLOWED the shield is offline; ask the user before calling `shield_mode`\n")

		return &sdkmcp.GetPromptResult{
			Description: "Guide for monitoring a wallet through the privacy shield",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
