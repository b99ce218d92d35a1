package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/usestring/privacyshield/pkg/shield"
)

func planCmd(a *app) *cobra.Command {
	var file string
	var commit bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how queries would be batched, padded and timed",
		Long: `Plan reads a JSON array of {"kind", "target", "meta"} queries and prints
the shielded schedule without sending anything.

By default the plan is a dry run and spends no budget. With --commit the
plan's lookups are recorded against the hourly budget, which is only useful
together with --history-file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := readQueries(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			s, err := a.loadShield()
			if err != nil {
				return err
			}

			var plan *shield.Plan
			if commit {
				plan, err = s.Plan(a.cfg.Profile, queries)
			} else {
				plan, err = s.DryRun(a.cfg.Profile, queries)
			}
			if err != nil {
				return err
			}
			if commit {
				if err := a.saveShieldHistory(plan.CreatedAt); err != nil {
					return err
				}
			}

			return a.output(cmd.OutOrStdout(), plan, func(w io.Writer) error {
				printPlan(w, plan)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "Queries file (- for stdin)")
	cmd.Flags().BoolVar(&commit, "commit", false, "Record the plan against the hourly budget")
	return cmd
}

func printPlan(w io.Writer, plan *shield.Plan) {
	printHeader(w, fmt.Sprintf("Plan (%s)", plan.Profile))
	printField(w, "real", plan.RealCount())
	printField(w, "chaff", plan.ChaffCount())
	printField(w, "batches", len(plan.Batches))
	printField(w, "span", plan.Span().Round(time.Millisecond))
	for _, b := range plan.Batches {
		delay := b.SendAt.Sub(plan.CreatedAt).Round(time.Millisecond)
		_, _ = dimColor.Fprintf(w, "  #%d  +%-10s", b.Seq, delay)
		fmt.Fprintf(w, " %d queries (%d real, %d chaff)\n", len(b.Queries), b.RealCount(), b.ChaffCount())
	}
}
