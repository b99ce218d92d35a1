package mcpsrv

import (
	"context"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/privacyshield/internal/config"
	"github.com/usestring/privacyshield/pkg/shield"
)

// serverConfig holds configuration built from options.
type serverConfig struct {
	config     *config.Config
	shieldOpts []shield.Option

	logLevel string
	logFile  string

	profiles       []shield.Profile
	defaultProfile string
	startOffline   bool

	disableBuiltinTools   bool
	disableBuiltinPrompts bool

	promptRegistrations   []func(*mcp.Server)
	depsToolRegistrations []func(*mcp.Server, *Deps)
}

// Option configures the server.
type Option func(*serverConfig)

// WithLogLevel sets the log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(cfg *serverConfig) {
		cfg.logLevel = level
	}
}

// WithLogFile sets the log file path. If empty, logs go to stderr only.
func WithLogFile(path string) Option {
	return func(cfg *serverConfig) {
		cfg.logFile = path
	}
}

// WithConfig replaces the configuration loaded from the environment.
func WithConfig(c *config.Config) Option {
	return func(cfg *serverConfig) {
		if c != nil {
			cfg.config = c
		}
	}
}

// WithShieldOptions passes options through to the shield, after the ones
// derived from configuration. Use it to inject a clock or a seeded source.
func WithShieldOptions(opts ...shield.Option) Option {
	return func(cfg *serverConfig) {
		cfg.shieldOpts = append(cfg.shieldOpts, opts...)
	}
}

// WithProfiles registers extra privacy profiles next to the built-in ones
// and any loaded from SHIELD_PROFILES_FILE. A profile with a built-in name
// replaces it.
func WithProfiles(profiles ...shield.Profile) Option {
	return func(cfg *serverConfig) {
		cfg.profiles = append(cfg.profiles, profiles...)
	}
}

// WithDefaultProfile selects the profile used when a call names none. It
// wins over SHIELD_PROFILE.
func WithDefaultProfile(name string) Option {
	return func(cfg *serverConfig) {
		cfg.defaultProfile = name
	}
}

// WithOffline starts the server in offline mode regardless of
// SHIELD_NETWORK_MODE. Clients flip it with shield_mode.
func WithOffline() Option {
	return func(cfg *serverConfig) {
		cfg.startOffline = true
	}
}

// WithoutBuiltinTools disables the builtin shield tools and resources.
func WithoutBuiltinTools() Option {
	return func(cfg *serverConfig) {
		cfg.disableBuiltinTools = true
	}
}

// WithoutBuiltinPrompts disables the builtin shield prompts.
func WithoutBuiltinPrompts() Option {
	return func(cfg *serverConfig) {
		cfg.disableBuiltinPrompts = true
	}
}

// WithDepsTool registers a custom tool built from the server's Deps. Its
// lookups go through the same shield as the builtin tools, so they share the
// hourly budget and stop when the mode goes offline.
//
//	mcpsrv.WithDepsTool(
//	    &mcp.Tool{Name: "budget_left", Description: "Lookups left this hour"},
//	    func(d *mcpsrv.Deps) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error) {
//	        return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
//	            usage, err := d.Shield.Usage("")
//	            ...
//	        }
//	    },
//	)
//
// Errors returned by the handler are coded the same way as builtin tool
// errors.
func WithDepsTool[In, Out any](tool *mcp.Tool, builder func(*Deps) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		cfg.depsToolRegistrations = append(cfg.depsToolRegistrations, func(srv *mcp.Server, deps *Deps) {
			AddTool(srv, tool, builder(deps))
		})
	}
}

// WithPrompt registers a custom prompt with the server.
func WithPrompt(prompt *mcp.Prompt, handler func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error)) Option {
	return func(cfg *serverConfig) {
		cfg.promptRegistrations = append(cfg.promptRegistrations, func(srv *mcp.Server) {
			srv.AddPrompt(prompt, handler)
		})
	}
}
