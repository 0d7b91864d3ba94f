package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/queue"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Manage recording sessions",
	}
	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionStartCommand(ctx))
	sessionCmd.AddCommand(newSessionEndCommand(ctx))
	sessionCmd.AddCommand(newSessionDeleteCommand(ctx))
	return sessionCmd
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recording sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(client *api.Client, store *queue.Store) error {
				var sessions []api.Session
				if client != nil {
					list, err := client.ListSessions(cmd.Context())
					if err != nil {
						return err
					}
					sessions = list
				} else {
					rows, err := store.ListSessions(cmd.Context())
					if err != nil {
						return err
					}
					for _, row := range rows {
						sessions = append(sessions, api.FromSession(row))
					}
				}

				if jsonOut {
					if sessions == nil {
						sessions = []api.Session{}
					}
					return writeJSON(cmd, api.SessionListResponse{Sessions: sessions})
				}
				if len(sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Workflow", "Source", "Created"},
					buildSessionRows(sessions),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSessionStartCommand(ctx *commandContext) *cobra.Command {
	var id string
	var workflowName string
	cmd := &cobra.Command{
		Use:   "start <source-path>",
		Short: "Register a recording session so it can receive triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(cmd, func(client *api.Client) error {
				session, err := client.StartSession(cmd.Context(), api.StartSessionRequest{
					ID:         strings.TrimSpace(id),
					Workflow:   strings.TrimSpace(workflowName),
					SourcePath: strings.TrimSpace(args[0]),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s started (workflow %s)\n", session.ID, session.Workflow)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Session identifier (generated when empty)")
	cmd.Flags().StringVarP(&workflowName, "workflow", "w", "", "Workflow whose trigger settings apply")
	return cmd
}

func newSessionEndCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "end <session-id>",
		Short: "End the session's recording clip now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withDaemon(cmd, func(client *api.Client) error {
				resp, err := client.EndSession(cmd.Context(), id)
				if api.IsNotFound(err) {
					return fmt.Errorf("session %s not found", id)
				}
				if err != nil {
					return err
				}
				if !resp.Ended || resp.Item == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Session %s has no recording clip\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Clip %s ended: %s\n", resp.Item.ID, api.WindowLabel(*resp.Item))
				return nil
			})
		},
	}
}

func newSessionDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session with its queue items and clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withDaemon(cmd, func(client *api.Client) error {
				err := client.DeleteSession(cmd.Context(), id)
				if api.IsNotFound(err) {
					return fmt.Errorf("session %s not found", id)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted\n", id)
				return nil
			})
		},
	}
}
