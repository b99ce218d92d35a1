package mcpsrv

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/privacyshield/internal/bootstrap"
	"github.com/usestring/privacyshield/internal/config"
	"github.com/usestring/privacyshield/internal/logging"
	"github.com/usestring/privacyshield/internal/mcp"
	"github.com/usestring/privacyshield/internal/mcp/tools"
	"github.com/usestring/privacyshield/internal/query"
	"github.com/usestring/privacyshield/pkg/shield"
)

// Server is the privacy shield MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal   *mcp.Server
	deps       *Deps
	logCleanup func() error
}

// NewServer creates a new MCP server with builtin shield tools.
//
// The transport parameter is required and carries every lookup to the
// provider. Use functional options to configure logging, add custom tools, etc.
func NewServer(t shield.Transport, opts ...Option) (*Server, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}

	// Build configuration from options
	cfg := &serverConfig{
		config: config.Load(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logCfg := logging.FromConfig(cfg.config)
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	sh, err := bootstrap.Shield(cfg.config, t, cfg.shieldOpts...)
	if err != nil {
		_ = logCleanup()
		return nil, fmt.Errorf("failed to create shield: %w", err)
	}
	if err := cfg.applyShield(sh); err != nil {
		_ = logCleanup()
		return nil, err
	}
	queryEngine := query.NewEngine()

	toolDeps := &tools.Deps{
		Shield: sh,
		Config: cfg.config,
		Query:  queryEngine,
	}

	// Public deps (same values, different type for public API)
	deps := &Deps{
		Shield: sh,
		Config: cfg.config,
		Query:  queryEngine,
	}

	var internalOpts []mcp.ServerOption
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	if !cfg.disableBuiltinPrompts {
		internalOpts = append(internalOpts, mcp.WithBuiltinPrompts())
	}
	for _, fn := range cfg.promptRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.depsToolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, deps)
		}))
	}

	internal, err := mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		_ = logCleanup()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Server{
		internal:   internal,
		deps:       deps,
		logCleanup: logCleanup,
	}, nil
}

// applyShield registers option profiles and applies the default profile and
// starting mode on top of what configuration produced.
func (cfg *serverConfig) applyShield(sh *shield.Shield) error {
	reg := sh.Registry()
	for _, p := range cfg.profiles {
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	if cfg.defaultProfile != "" {
		if err := reg.SetDefault(cfg.defaultProfile); err != nil {
			return err
		}
	}
	if cfg.startOffline {
		sh.Mode().Set(shield.ModeOffline)
	}
	return nil
}

// Run starts the MCP server with stdio transport.
// The server runs until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.internal.Run(ctx)
}

// MCPServer returns the underlying MCP server, for in-process transports.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.internal.MCPServer()
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}
