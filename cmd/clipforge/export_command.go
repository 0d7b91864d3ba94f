package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var platforms []string
	var format string
	var quality string
	var watermark string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "export <clip-id>",
		Short: "Render a finished clip for one or more platforms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clipID := strings.TrimSpace(args[0])
			targets := make([]string, 0, len(platforms))
			for _, p := range platforms {
				if p = strings.TrimSpace(p); p != "" {
					targets = append(targets, p)
				}
			}
			if len(targets) == 0 {
				return errors.New("at least one --platform is required")
			}

			return ctx.withDaemon(cmd, func(client *api.Client) error {
				resp, err := client.ExportClip(cmd.Context(), clipID, api.ExportRequest{
					Platforms: targets,
					Format:    strings.TrimSpace(format),
					Quality:   strings.TrimSpace(quality),
					Watermark: strings.TrimSpace(watermark),
				})
				if api.IsNotFound(err) {
					return fmt.Errorf("clip %s not found", clipID)
				}
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Platform", "Aspect", "Size", "Output"},
					buildExportRows(resp.Results),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				failed := 0
				for _, r := range resp.Results {
					if r.Error != "" {
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d exports failed", failed, len(resp.Results))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "Target platform, e.g. TIKTOK or YOUTUBE_SHORTS (repeatable)")
	cmd.Flags().StringVar(&format, "format", "", "Container format override")
	cmd.Flags().StringVar(&quality, "quality", "", "Quality preset override (low, medium, high, original)")
	cmd.Flags().StringVar(&watermark, "watermark", "", "Watermark text")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
