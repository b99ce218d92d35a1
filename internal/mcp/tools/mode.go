package tools

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/privacyshield/pkg/shield"
)

// ModeInput is the input for shield_mode.
type ModeInput struct {
	Set string `json:"set,omitempty" jsonschema:"New network mode: online or offline (omit to read the current mode)"`
}

// ModeOutput is the output for shield_mode.
type ModeOutput struct {
	Mode           string `json:"mode"`
	NetworkAllowed bool   `json:"network_allowed"`
	Changed        bool   `json:"changed"`
}

// ToolMode reads or switches the network mode. Going offline cancels any
// execution in progress.
func ToolMode(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ModeInput) (*sdkmcp.CallToolResult, ModeOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ModeInput) (*sdkmcp.CallToolResult, ModeOutput, error) {
		sw := d.Shield.Mode()
		before := sw.Mode()

		if input.Set != "" {
			m, err := shield.ParseMode(input.Set)
			if err != nil {
				return nil, ModeOutput{}, ErrInvalidInput(err.Error())
			}
			sw.Set(m)
			if m != before {
				slog.Info("network mode changed",
					slog.String("from", before.String()),
					slog.String("to", m.String()),
				)
			}
		}

		after := sw.Mode()
		return nil, ModeOutput{
			Mode:           after.String(),
			NetworkAllowed: sw.NetworkAllowed(),
			Changed:        after != before,
		}, nil
	}
}
