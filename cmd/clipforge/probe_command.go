package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := strings.TrimSpace(args[0])
			probeCtx, cancel := context.WithTimeout(cmd.Context(), cfg.ProbeTimeout())
			defer cancel()
			result, err := ffprobe.Inspect(probeCtx, cfg.Converter.FFprobeBinary, path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if raw {
				_, err := out.Write(result.RawJSON())
				return err
			}
			summary := result.Summary()
			if jsonOut {
				return writeJSON(cmd, summary)
			}

			rows := [][]string{
				{"File", path},
				{"Container", result.Format.FormatName},
				{"Duration", fmt.Sprintf("%.2fs", summary.Duration)},
				{"Size", formatBytes(summary.SizeBytes)},
			}
			if summary.Codec != "" {
				rows = append(rows,
					[]string{"Video", fmt.Sprintf("%s %dx%d @ %.2f fps", summary.Codec, summary.Width, summary.Height, summary.FrameRate)},
				)
			}
			if summary.BitRate > 0 {
				rows = append(rows, []string{"Bitrate", fmt.Sprintf("%d kb/s", summary.BitRate/1000)})
			}
			rows = append(rows, []string{"Audio", yesNo(summary.HasAudio)})
			fmt.Fprint(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the summary as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "Output ffprobe's raw JSON report")
	return cmd
}
