package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pagemill/internal/config"
	"pagemill/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the durable processing queue",
	}

	queueCmd.AddCommand(&cobra.Command{
		Use:          "list",
		Short:        "List queue entries in dequeue order",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				entries, err := st.QueueEntries(cmd.Context())
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					name := "(missing)"
					status := "-"
					if page, err := st.GetPage(cmd.Context(), entry.PageID); err == nil && page != nil {
						name = truncate(page.FileName, 36)
						status = string(page.Status)
					}
					rows = append(rows, []string{
						shortID(entry.PageID),
						name,
						status,
						strconv.Itoa(entry.Priority),
						formatTime(entry.AddedAt),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]column{
						{"PAGE", false},
						{"NAME", false},
						{"STATUS", false},
						{"PRIORITY", true},
						{"QUEUED", false},
					},
					rows,
				))
				return nil
			})
		},
	})

	queueCmd.AddCommand(&cobra.Command{
		Use:          "clear",
		Short:        "Remove every queue entry",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				count, err := st.ClearQueue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d queue entries\n", count)
				return nil
			})
		},
	})

	return queueCmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "status",
		Short:        "Show page counts by status and queue depth",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				queued, err := st.QueueCount(cmd.Context())
				if err != nil {
					return err
				}
				total, err := st.CountPages(cmd.Context())
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				rows := make([][]string, 0, len(stats))
				for _, status := range store.AllStatuses() {
					count := stats[status]
					if count == 0 {
						continue
					}
					rows = append(rows, []string{
						colorizeStatus(string(status), colorize),
						strconv.Itoa(count),
					})
				}
				if len(rows) > 0 {
					fmt.Fprintln(stdout, renderTable(
						[]column{{"STATUS", false}, {"PAGES", true}},
						rows,
					))
				}
				fmt.Fprintf(stdout, "%d pages total, %d queued\n", total, queued)
				fmt.Fprintf(stdout, "Database: %s\n", st.Path())
				return nil
			})
		},
	}
}
