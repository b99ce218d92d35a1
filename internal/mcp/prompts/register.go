package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "monitor_wallet_privately",
		Description: "RECOMMENDED: Check a wallet's transactions without revealing which ones belong to it. Walks through choosing a profile, previewing the plan, executing, and retrying failures.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "profile",
				Description: "Privacy profile to use (see shield_profiles)",
				Required:    false,
			},
			{
				Name:        "kind",
				Description: "Lookup kind for the wallet's queries (default: tx-proof)",
				Required:    false,
			},
		},
	}, HandleMonitorWalletPrivately(cfg))
}
