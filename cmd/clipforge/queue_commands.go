package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the clip queue",
	}

	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCompletedCommand(ctx))
	queueCmd.AddCommand(newQueueEndCommand(ctx))

	return queueCmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(client *api.Client, store *queue.Store) error {
				var stats map[string]int
				if client != nil {
					counts, err := client.QueueStats(cmd.Context())
					if err != nil {
						return err
					}
					stats = counts
				} else {
					counts, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					stats = api.FromQueueStats(counts)
				}

				if jsonOut {
					return writeJSON(cmd, api.QueueStatsResponse{Counts: stats})
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilters(listStatuses)
			if err != nil {
				return err
			}
			return ctx.withQueue(cmd, func(client *api.Client, store *queue.Store) error {
				var items []api.QueueItem
				if client != nil {
					names := make([]string, 0, len(statuses))
					for _, status := range statuses {
						names = append(names, string(status))
					}
					items, err = client.ListQueue(cmd.Context(), names...)
					if err != nil {
						return err
					}
				} else {
					rows, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					items = api.FromQueueItems(rows)
				}

				if jsonOut {
					if items == nil {
						items = []api.QueueItem{}
					}
					return writeJSON(cmd, api.QueueListResponse{Items: api.SortQueueItemsNewestFirst(items)})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Session", "Status", "Trigger", "Window", "Created"},
					buildQueueListRows(items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withQueue(cmd, func(client *api.Client, store *queue.Store) error {
				var item api.QueueItem
				if client != nil {
					fetched, err := client.GetItem(cmd.Context(), id)
					if api.IsNotFound(err) {
						return fmt.Errorf("queue item %s not found", id)
					}
					if err != nil {
						return err
					}
					item = *fetched
				} else {
					row, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if row == nil {
						return fmt.Errorf("queue item %s not found", id)
					}
					item = api.FromQueueItem(row)
				}

				if jsonOut {
					return writeJSON(cmd, item)
				}
				for _, line := range describeItem(item) {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Requeue failed items (all failed items when no IDs are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return ctx.withQueue(cmd, func(client *api.Client, store *queue.Store) error {
				if len(args) == 0 {
					var count int64
					var err error
					if client != nil {
						count, err = client.RetryAllFailed(cmd.Context())
					} else {
						count, err = store.RetryAllFailed(cmd.Context())
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Requeued %d failed items\n", count)
					return nil
				}

				var failures []string
				for _, raw := range args {
					id := strings.TrimSpace(raw)
					var err error
					if client != nil {
						_, err = client.Retry(cmd.Context(), id)
					} else {
						_, err = store.Retry(cmd.Context(), id)
					}
					if err != nil {
						failures = append(failures, fmt.Sprintf("%s: %v", id, err))
						continue
					}
					fmt.Fprintf(out, "Item %s requeued\n", id)
				}
				if len(failures) > 0 {
					return fmt.Errorf("retry failed for %d item(s):\n  %s", len(failures), strings.Join(failures, "\n  "))
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id...>",
		Aliases: []string{"cancel"},
		Short:   "Cancel and delete queue items that have not completed",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return ctx.withQueue(cmd, func(client *api.Client, store *queue.Store) error {
				removed := 0
				for _, raw := range args {
					id := strings.TrimSpace(raw)
					if client != nil {
						err := client.CancelClip(cmd.Context(), id)
						if api.IsNotFound(err) || isConflict(err) {
							fmt.Fprintf(out, "Item %s not found or already completed\n", id)
							continue
						}
						if err != nil {
							return err
						}
					} else {
						ok, err := store.Cancel(cmd.Context(), id)
						if err != nil {
							return err
						}
						if !ok {
							fmt.Fprintf(out, "Item %s not found or already completed\n", id)
							continue
						}
					}
					removed++
					fmt.Fprintf(out, "Item %s removed\n", id)
				}
				if removed == 0 {
					return errors.New("no items removed")
				}
				return nil
			})
		},
	}
}

func newQueueClearCompletedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove completed items from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(client *api.Client, store *queue.Store) error {
				var removed int64
				var err error
				if client != nil {
					removed, err = client.ClearCompleted(cmd.Context())
				} else {
					removed, err = store.ClearCompleted(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed items\n", removed)
				return nil
			})
		},
	}
}

func newQueueEndCommand(ctx *commandContext) *cobra.Command {
	var t1 float64
	cmd := &cobra.Command{
		Use:   "end <id>",
		Short: "End a recording clip (at --t1, or at its auto-clip end)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			var end *float64
			if cmd.Flags().Changed("t1") {
				end = &t1
			}
			return ctx.withDaemon(cmd, func(client *api.Client) error {
				resp, err := client.EndClip(cmd.Context(), id, end)
				if api.IsNotFound(err) {
					return fmt.Errorf("queue item %s not found", id)
				}
				if err != nil {
					return err
				}
				if !resp.Ended || resp.Item == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Item %s is not recording\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %s ended: %s\n", id, api.WindowLabel(*resp.Item))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&t1, "t1", 0, "End timestamp in seconds from session start")
	return cmd
}

func isConflict(err error) bool {
	var apiErr *api.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

func parseStatusFilters(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown queue status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
