package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/usestring/privacyshield/internal/query"
	"github.com/usestring/privacyshield/pkg/shield"
)

// runReport is the JSON output of the run command.
type runReport struct {
	Profile    string               `json:"profile"`
	Canceled   bool                 `json:"canceled,omitempty"`
	Batches    int                  `json:"batches"`
	Results    []shield.QueryResult `json:"results"`
	Failed     []uint32             `json:"failed,omitempty"`
	Unsent     []uint32             `json:"unsent,omitempty"`
	Projection *query.Result        `json:"projection,omitempty"`
}

func runCmd(a *app) *cobra.Command {
	var (
		file         string
		includeChaff bool
		jq           string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan queries and send them to the provider",
		Long: `Run plans the queries, records them against the hourly budget and sends
every batch at its scheduled time. It blocks until the last batch is sent.

Only results of real queries are printed unless --include-chaff is given.
A failing query never fails the run; its index is listed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := readQueries(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			engine := query.NewEngine()
			if jq != "" {
				if err := engine.ValidateExpression(jq); err != nil {
					return err
				}
			}

			s, err := a.loadShield()
			if err != nil {
				return err
			}

			if !s.Mode().NetworkAllowed() {
				return shield.ErrNetworkDisallowed
			}
			plan, err := s.Plan(a.cfg.Profile, queries)
			if err != nil {
				return err
			}
			// Committed lookups reach the file before the first batch is sent.
			if err := a.saveShieldHistory(plan.CreatedAt); err != nil {
				return err
			}

			res, runErr := s.Execute(cmd.Context(), plan)
			canceled := errors.Is(runErr, shield.ErrExecutionCanceled)
			if runErr != nil && (!canceled || res == nil) {
				return runErr
			}

			report := runReport{
				Profile:  plan.Profile,
				Canceled: canceled,
				Batches:  len(res.Batches),
				Results:  res.Real(),
				Failed:   res.FailedReal().ToArray(),
				Unsent:   res.Unsent(plan).ToArray(),
			}
			if includeChaff {
				report.Results = allResults(res)
			}
			if jq != "" {
				proj, err := engine.Project(jq, okBodies(res.Real()), query.Options{})
				if err != nil {
					return err
				}
				report.Projection = proj
			}

			err = a.output(cmd.OutOrStdout(), report, func(w io.Writer) error {
				printReport(w, plan, &report)
				return nil
			})
			if err != nil {
				return err
			}
			if canceled {
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "Queries file (- for stdin)")
	cmd.Flags().BoolVar(&includeChaff, "include-chaff", false, "Also print decoy results")
	cmd.Flags().StringVar(&jq, "jq", "", "jq expression applied to each successful response body")
	return cmd
}

func allResults(res *shield.ExecutionResult) []shield.QueryResult {
	out := make([]shield.QueryResult, 0)
	for _, b := range res.Batches {
		out = append(out, b.Queries...)
	}
	return out
}

func okBodies(results []shield.QueryResult) []query.Input {
	out := make([]query.Input, 0, len(results))
	for _, r := range results {
		if r.OK && r.Body != nil {
			out = append(out, query.Input{Label: fmt.Sprintf("queries[%d]", r.Index), Value: r.Body})
		}
	}
	return out
}

func printReport(w io.Writer, plan *shield.Plan, r *runReport) {
	printHeader(w, fmt.Sprintf("Run (%s)", r.Profile))
	printField(w, "batches", fmt.Sprintf("%d of %d sent", r.Batches, len(plan.Batches)))

	for _, q := range r.Results {
		label := fmt.Sprintf("[%d]", q.Index)
		if q.IsChaff {
			label = "[chaff]"
		}
		if q.OK {
			printSuccess(w, fmt.Sprintf("%s %s %s (%d)", label, q.Kind, q.Target, q.Status))
		} else {
			printWarning(w, fmt.Sprintf("%s %s %s: %s", label, q.Kind, q.Target, q.Error))
		}
	}

	if len(r.Unsent) > 0 {
		printWarning(w, fmt.Sprintf("%d queries were not sent: %v", len(r.Unsent), r.Unsent))
	}
	if r.Projection != nil {
		printHeader(w, "Projection")
		for _, v := range r.Projection.Values {
			fmt.Fprintf(w, "  %v\n", v)
		}
		for _, e := range r.Projection.Errors {
			printWarning(w, e)
		}
	}
}
