package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/trigger"
)

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "Send a trigger to a running session",
	}
	triggerCmd.AddCommand(newTriggerKindCommand(ctx, "manual", trigger.WireButton, "Start a clip by hand"))
	triggerCmd.AddCommand(newTriggerKindCommand(ctx, "voice", trigger.WireVoice, "Send a detected voice phrase"))
	triggerCmd.AddCommand(newTriggerKindCommand(ctx, "gesture", trigger.WireGesture, "Send a detected gesture"))
	return triggerCmd
}

func newTriggerKindCommand(ctx *commandContext, use string, wire trigger.Wire, short string) *cobra.Command {
	var at float64
	var label string
	var confidence float64

	cmd := &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := strings.TrimSpace(args[0])
			req := api.TriggerRequest{
				Kind:  string(wire),
				Label: strings.TrimSpace(label),
				T:     at,
			}
			if cmd.Flags().Changed("confidence") {
				if confidence < 0 || confidence > 1 {
					return fmt.Errorf("confidence must be between 0 and 1, got %v", confidence)
				}
				req.Confidence = &confidence
			}
			return ctx.withDaemon(cmd, func(client *api.Client) error {
				resp, err := client.Trigger(cmd.Context(), sessionID, req)
				if api.IsNotFound(err) {
					return fmt.Errorf("session %s not found", sessionID)
				}
				if err != nil {
					return err
				}
				if !resp.Accepted || resp.Item == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Trigger ignored (source disabled or a clip is already recording)")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Clip %s recording from %.1fs (%s)\n", resp.Item.ID, resp.Item.T0, api.TriggerLabel(*resp.Item))
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&at, "t", 0, "Trigger timestamp in seconds from session start")
	switch wire {
	case trigger.WireVoice:
		cmd.Flags().StringVar(&label, "phrase", "", "Detected phrase")
	case trigger.WireGesture:
		cmd.Flags().StringVar(&label, "label", "", "Detected gesture label")
	default:
		cmd.Flags().StringVar(&label, "label", "", "Optional trigger label")
	}
	if wire != trigger.WireButton {
		cmd.Flags().Float64Var(&confidence, "confidence", 0, "Detector confidence between 0 and 1")
	}
	return cmd
}
