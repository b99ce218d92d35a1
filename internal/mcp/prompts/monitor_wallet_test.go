package prompts

import (
	"context"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptText(t *testing.T, res *sdkmcp.GetPromptResult) string {
	t.Helper()
	require.Len(t, res.Messages, 1)
	text, ok := res.Messages[0].Content.(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestMonitorWalletPrivately_Defaults(t *testing.T) {
	cfg := &Config{DefaultProfile: "everyday-monitor", Profiles: []string{"burst-sync", "everyday-monitor"}}

	res, err := HandleMonitorWalletPrivately(cfg)(context.Background(), &sdkmcp.GetPromptRequest{
		Params: &sdkmcp.GetPromptParams{Name: "monitor_wallet_privately"},
	})
	require.NoError(t, err)

	text := promptText(t, res)
	assert.Contains(t, text, "Requested profile: `everyday-monitor`")
	assert.Contains(t, text, "Available: burst-sync, everyday-monitor")
	assert.Contains(t, text, `kind: "tx-proof"`)
}

func TestMonitorWalletPrivately_Arguments(t *testing.T) {
	cfg := &Config{DefaultProfile: "everyday-monitor"}

	res, err := HandleMonitorWalletPrivately(cfg)(context.Background(), &sdkmcp.GetPromptRequest{
		Params: &sdkmcp.GetPromptParams{
			Name:      "monitor_wallet_privately",
			Arguments: map[string]string{"profile": "cold-monitor", "kind": "tx-raw"},
		},
	})
	require.NoError(t, err)

	text := promptText(t, res)
	assert.Contains(t, text, `shield_plan(profile: "cold-monitor"`)
	assert.Contains(t, text, `kind: "tx-raw"`)
	assert.NotContains(t, text, "Available:")
}
