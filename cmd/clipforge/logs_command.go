package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.DaemonLogPath()
			out := cmd.OutOrStdout()
			emit := func(line string) {
				if !filter.Match(line) {
					return
				}
				if raw {
					fmt.Fprintln(out, line)
					return
				}
				fmt.Fprintln(out, logs.Format(line))
			}

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				emit(line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, path, offset, 250*time.Millisecond, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new records")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unformatted")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&filter.EventType, "event", "", "Only records with this event_type")
	cmd.Flags().StringVar(&filter.SessionID, "session", "", "Only records for this session")
	cmd.Flags().StringVar(&filter.ItemID, "item", "", "Only records for this queue item")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only records from this component")
	cmd.Flags().StringVar(&filter.Search, "grep", "", "Case-insensitive substring match")
	return cmd
}
