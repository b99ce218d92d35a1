// Package cli implements the shieldctl command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/usestring/privacyshield/internal/bootstrap"
	"github.com/usestring/privacyshield/internal/config"
	"github.com/usestring/privacyshield/internal/logging"
	"github.com/usestring/privacyshield/pkg/shield"
)

// skipSetup marks commands that configure logging themselves.
const skipSetup = "skip-setup"

var rootVersion = "dev"

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	if v != "" {
		rootVersion = v
	}
}

// Execute runs shieldctl with the process arguments.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := newApp()
	defer func() { _ = a.teardown() }()
	return newRootCmd(a).ExecuteContext(ctx)
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfg *config.Config

	// newTransport builds the provider transport; tests replace it.
	newTransport func(*config.Config) shield.Transport
	// shieldOpts are applied after the configured shield options.
	shieldOpts []shield.Option

	flags struct {
		json        bool
		profile     string
		provider    string
		mode        string
		seed        uint64
		historyFile string
		logLevel    string
	}

	shield     *shield.Shield
	logCleanup func() error
}

func newApp() *app {
	return &app{
		newTransport: func(cfg *config.Config) shield.Transport {
			return bootstrap.Transport(cfg)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "shieldctl",
		Version: rootVersion,
		Short:   "Plan and run wallet lookups behind batching, chaff and jitter",
		Long: `shieldctl hides a wallet's provider lookups among decoy queries.

Real queries are grouped into batches, padded with chaff shaped like the
real targets and sent at jittered times within an hourly lookup budget.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.BoolVar(&a.flags.json, "json", false, "Output JSON instead of text")
	pf.StringVarP(&a.flags.profile, "profile", "p", "", "Shield profile (default from SHIELD_PROFILE)")
	pf.StringVar(&a.flags.provider, "provider", "", "Provider lookup URL (default from SHIELD_PROVIDER_URL)")
	pf.StringVar(&a.flags.mode, "mode", "", "Network mode: online or offline (default from SHIELD_NETWORK_MODE)")
	pf.Uint64Var(&a.flags.seed, "seed", 0, "Seed for reproducible plans (0 draws one from the OS)")
	pf.StringVar(&a.flags.historyFile, "history-file", "", "File the lookup history is kept in between runs")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		profilesCmd(a),
		planCmd(a),
		runCmd(a),
		budgetCmd(a),
		schemaCmd(a),
		serveCmd(a),
	)
	return root
}

// setup loads configuration and applies flag overrides. Logging is set up
// here except for commands that do it themselves.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Load()
	flags := cmd.Flags()
	if flags.Changed("profile") {
		cfg.Profile = a.flags.profile
	}
	if flags.Changed("provider") {
		cfg.ProviderURL = a.flags.provider
	}
	if flags.Changed("mode") {
		cfg.NetworkMode = a.flags.mode
	}
	if flags.Changed("seed") {
		cfg.RandomSeed = a.flags.seed
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	a.cfg = cfg

	if _, ok := cmd.Annotations[skipSetup]; ok {
		return nil
	}

	cleanup, err := logging.Setup(logging.FromConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logCleanup = cleanup
	return nil
}

func (a *app) teardown() error {
	if a.logCleanup == nil {
		return nil
	}
	err := a.logCleanup()
	a.logCleanup = nil
	return err
}

// loadShield builds the shield on first use, restoring the history file when
// one is configured.
func (a *app) loadShield() (*shield.Shield, error) {
	if a.shield != nil {
		return a.shield, nil
	}

	opts := []shield.Option{}
	if a.flags.historyFile != "" {
		times, err := loadHistory(a.flags.historyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, shield.WithHistory(shield.NewHistory(times...)))
	}
	opts = append(opts, a.shieldOpts...)

	s, err := bootstrap.Shield(a.cfg, a.newTransport(a.cfg), opts...)
	if err != nil {
		return nil, err
	}
	a.shield = s
	return s, nil
}

// saveShieldHistory persists the committed lookups when a history file is
// configured.
func (a *app) saveShieldHistory(now time.Time) error {
	if a.flags.historyFile == "" || a.shield == nil {
		return nil
	}
	return saveHistory(a.flags.historyFile, a.shield.History().Snapshot(now))
}

func (a *app) output(w io.Writer, v any, text func(io.Writer) error) error {
	if a.flags.json {
		return writeJSON(w, v)
	}
	return text(w)
}

// FormatError formats an error for display on stderr.
func FormatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}
