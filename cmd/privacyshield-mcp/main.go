package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/usestring/privacyshield/internal/bootstrap"
	"github.com/usestring/privacyshield/internal/config"
	"github.com/usestring/privacyshield/pkg/mcpsrv"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration comes from the environment:
	// - SHIELD_PROVIDER_URL: lookup endpoint (default http://localhost:3002/lookup)
	// - SHIELD_PROFILE / SHIELD_PROFILES_FILE: default profile and extra profiles
	// - SHIELD_NETWORK_MODE: online or offline
	// - LOG_LEVEL, LOG_FILE: logging (stderr only by default)
	// See internal/config for the rest.
	cfg := config.Load()

	server, err := mcpsrv.NewServer(bootstrap.Transport(cfg), mcpsrv.WithConfig(cfg))
	if err != nil {
		slog.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}
	defer server.Close()

	slog.Info("starting privacy shield MCP server on stdio",
		slog.String("mode", cfg.NetworkMode),
	)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
