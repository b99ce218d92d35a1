// Package bootstrap assembles a shield.Shield from configuration. The MCP
// server and the shieldctl CLI share it so both behave identically.
package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/usestring/privacyshield/internal/config"
	"github.com/usestring/privacyshield/internal/profilefile"
	"github.com/usestring/privacyshield/pkg/client"
	"github.com/usestring/privacyshield/pkg/shield"
)

// Transport builds the HTTP provider transport described by cfg.
func Transport(cfg *config.Config) *client.Client {
	return client.New(
		client.WithHTTPClient(&http.Client{Timeout: cfg.HTTPClientTimeout}),
		client.WithUserAgent(cfg.UserAgent),
		client.WithMaxBodyBytes(int64(cfg.MaxResponseBytes)),
	)
}

// Registry returns the built-in profiles plus any from cfg.ProfilesFile, with
// cfg.Profile as the default when set.
func Registry(cfg *config.Config) (*shield.Registry, error) {
	reg := shield.NewRegistry()

	if cfg.ProfilesFile != "" {
		f, err := profilefile.Load(cfg.ProfilesFile)
		if err != nil {
			return nil, err
		}
		if err := profilefile.Apply(reg, f); err != nil {
			return nil, fmt.Errorf("applying profiles file: %w", err)
		}
		slog.Info("profiles file loaded",
			slog.String("path", cfg.ProfilesFile),
			slog.Int("profiles", len(f.Profiles)),
		)
	}

	if cfg.Profile != "" {
		if err := reg.SetDefault(cfg.Profile); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Shield builds a Shield executing through t. Extra options are applied after
// the configured ones and win over them.
func Shield(cfg *config.Config, t shield.Transport, opts ...shield.Option) (*shield.Shield, error) {
	reg, err := Registry(cfg)
	if err != nil {
		return nil, err
	}

	mode, err := shield.ParseMode(cfg.NetworkMode)
	if err != nil {
		return nil, fmt.Errorf("SHIELD_NETWORK_MODE: %w", err)
	}

	corpus, err := shield.NewFormatCorpus(cfg.FormatCorpusKinds)
	if err != nil {
		return nil, fmt.Errorf("creating format corpus: %w", err)
	}

	base := []shield.Option{
		shield.WithRegistry(reg),
		shield.WithModeSwitch(shield.NewModeSwitch(mode)),
		shield.WithCorpus(corpus),
		shield.WithProviderEndpoint(cfg.ProviderURL),
		shield.WithExecutorOptions(
			shield.WithQueryTimeout(cfg.QueryTimeout),
			shield.WithConcurrency(cfg.QueryConcurrency),
		),
	}
	if cfg.RandomSeed != 0 {
		base = append(base, shield.WithRandom(shield.NewSource(cfg.RandomSeed)))
	}

	s, err := shield.New(t, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	slog.Debug("shield ready",
		slog.String("default_profile", reg.Default()),
		slog.String("mode", mode.String()),
		slog.Bool("seeded", cfg.RandomSeed != 0),
	)
	return s, nil
}
