package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/daemonctl"
	"clipforge/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external tools, encoders, and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			deps := daemonctl.ResolveDependencies(cmd.Context(), cfg)
			checks := preflight.RunAll(cmd.Context(), cfg)
			if jsonOut {
				return writeJSON(cmd, struct {
					Dependencies any `json:"dependencies"`
					Checks       any `json:"checks"`
				}{deps, checks})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			summary := daemonctl.BuildDependencySummary(deps)
			for _, line := range dependencyLines(deps, summary, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			failed := 0
			for _, check := range checks {
				kind := statusOK
				if !check.Passed {
					kind = statusError
					failed++
				}
				fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			if summary.MissingRequired > 0 || failed > 0 {
				return fmt.Errorf("%d required dependencies missing, %d preflight checks failed", summary.MissingRequired, failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
