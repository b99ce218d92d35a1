package mcpsrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/privacyshield/internal/mcp/tools"
)

// AddTool registers a tool the way the builtin shield tools are registered:
// the output type must survive its own inferred schema, and handler errors
// reach the client as coded errors (INVALID_INPUT, NETWORK_DISALLOWED, ...).
// It panics at registration when Out cannot be emitted as valid structured
// content.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
