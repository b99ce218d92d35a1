package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/usestring/privacyshield/pkg/shield"
)

type profileView struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Default     bool            `json:"default"`
	Settings    shield.Settings `json:"settings"`
}

func profilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the available shield profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadShield()
			if err != nil {
				return err
			}

			reg := s.Registry()
			def := reg.Default()
			views := make([]profileView, 0)
			for _, p := range reg.List() {
				views = append(views, profileView{
					Name:        p.Name,
					Title:       p.Title,
					Description: p.Description,
					Default:     p.Name == def,
					Settings:    p.Settings(),
				})
			}

			return a.output(cmd.OutOrStdout(), views, func(w io.Writer) error {
				for _, v := range views {
					title := v.Name
					if v.Default {
						title += " (default)"
					}
					printHeader(w, title)
					if v.Description != "" {
						_, _ = dimColor.Fprintf(w, "  %s\n", v.Description)
					}
					st := v.Settings
					printField(w, "budget", st.MaxLookupsPerHour)
					printField(w, "batch", formatRange(st.BatchMin, st.BatchMax))
					printField(w, "chaff", formatRange(st.ChaffPerBatchMin, st.ChaffPerBatchMax))
					printField(w, "first delay", formatMs(st.IntraBatchJitterMinMs, st.IntraBatchJitterMaxMs))
					printField(w, "batch gap", formatMs(st.InterBatchJitterMinMs, st.InterBatchJitterMaxMs))
				}
				return nil
			})
		},
	}
}
