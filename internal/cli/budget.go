package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"
)

func budgetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Show lookups used in the last hour",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadShield()
			if err != nil {
				return err
			}
			usage, err := s.Usage(a.cfg.Profile)
			if err != nil {
				return err
			}

			return a.output(cmd.OutOrStdout(), usage, func(w io.Writer) error {
				printHeader(w, "Budget")
				printField(w, "used", usage.Used)
				printField(w, "limit", usage.Limit)
				printField(w, "remaining", usage.Remaining)
				if !usage.NextFreeAt.IsZero() {
					printField(w, "next free", usage.NextFreeAt.Local().Format(time.DateTime))
				}
				return nil
			})
		},
	}
}
