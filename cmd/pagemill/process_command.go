package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pagemill/internal/config"
	"pagemill/internal/pipeline"
	"pagemill/internal/store"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var priority int

	cmd := &cobra.Command{
		Use:   "process [<page-id>...]",
		Short: "Process pages through recognition and artifact generation",
		Long: "Process the named pages, or with no arguments resume queued work " +
			"plus every page still waiting in pending_render.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(cfg *config.Config, st *store.Store, manager *pipeline.Manager) error {
				var targets []*store.Page

				if len(args) > 0 {
					for _, arg := range args {
						page, err := resolvePage(cmd, st, arg)
						if err != nil {
							return err
						}
						if err := manager.ProcessPage(cmd.Context(), page.ID, priority); err != nil {
							return err
						}
						targets = append(targets, page)
					}
				} else {
					if _, err := manager.ResumeQueue(cmd.Context()); err != nil {
						return err
					}
					pending, err := st.ListPagesByStatus(cmd.Context(), store.StatusPendingRender)
					if err != nil {
						return err
					}
					for _, page := range pending {
						if err := manager.ProcessPage(cmd.Context(), page.ID, priority); err != nil {
							return err
						}
					}
					targets, err = st.ListPages(cmd.Context())
					if err != nil {
						return err
					}
					if len(targets) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "Nothing to process")
						return nil
					}
				}

				manager.Wait()
				return printProcessingSummary(cmd.OutOrStdout(), st, cmd.Context(), targets)
			})
		},
	}
	cmd.Flags().IntVar(&priority, "priority", 0, "Queue priority")
	return cmd
}

// printProcessingSummary re-reads the pages and prints their final statuses.
func printProcessingSummary(out io.Writer, st *store.Store, ctx context.Context, pages []*store.Page) error {
	colorize := shouldColorize(out)
	completed := 0
	failed := 0
	rows := make([][]string, 0, len(pages))
	for _, stale := range pages {
		page, err := st.GetPage(ctx, stale.ID)
		if err != nil {
			return err
		}
		if page == nil {
			continue
		}
		switch page.Status {
		case store.StatusCompleted:
			completed++
		case store.StatusError:
			failed++
		}
		id, name, status, progress := pageCells(page, colorize)
		rows = append(rows, []string{id, name, status, progress})
	}

	fmt.Fprintln(out, renderTable(
		[]column{{"ID", false}, {"NAME", false}, {"STATUS", false}, {"PROGRESS", true}},
		rows,
	))
	fmt.Fprintf(out, "%d completed, %d failed, %d total\n", completed, failed, len(rows))
	return nil
}
