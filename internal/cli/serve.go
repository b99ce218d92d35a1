package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/usestring/privacyshield/pkg/mcpsrv"
	"github.com/usestring/privacyshield/pkg/shield"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "serve",
		Short:       "Run the MCP server on stdio",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := append([]shield.Option{}, a.shieldOpts...)
			if a.flags.historyFile != "" {
				times, err := loadHistory(a.flags.historyFile)
				if err != nil {
					return err
				}
				opts = append([]shield.Option{shield.WithHistory(shield.NewHistory(times...))}, opts...)
			}

			server, err := mcpsrv.NewServer(a.newTransport(a.cfg),
				mcpsrv.WithConfig(a.cfg),
				mcpsrv.WithShieldOptions(opts...),
			)
			if err != nil {
				return err
			}
			defer server.Close()

			slog.Info("starting privacy shield MCP server on stdio",
				slog.String("mode", a.cfg.NetworkMode),
			)
			err = server.Run(cmd.Context())
			if a.flags.historyFile != "" {
				h := server.Deps().Shield.History()
				if saveErr := saveHistory(a.flags.historyFile, h.Timestamps()); saveErr != nil {
					slog.Warn("failed to save history", slog.String("error", saveErr.Error()))
				}
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
}
