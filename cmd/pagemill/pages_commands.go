package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pagemill/internal/config"
	"pagemill/internal/pipeline"
	"pagemill/internal/store"
)

func newPagesCommand(ctx *commandContext) *cobra.Command {
	pagesCmd := &cobra.Command{
		Use:   "pages",
		Short: "Inspect and manage pages",
	}

	pagesCmd.AddCommand(newPagesListCommand(ctx))
	pagesCmd.AddCommand(newPagesShowCommand(ctx))
	pagesCmd.AddCommand(newPagesDeleteCommand(ctx))
	pagesCmd.AddCommand(newPagesReorderCommand(ctx))
	pagesCmd.AddCommand(newPagesRetryCommand(ctx))
	pagesCmd.AddCommand(newPagesRegenerateCommand(ctx))

	return pagesCmd
}

func newPagesListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List pages in display order",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				var (
					pages []*store.Page
					err   error
				)
				if statusFilter != "" {
					status, ok := store.ParseStatus(statusFilter)
					if !ok {
						return fmt.Errorf("unknown status %q", statusFilter)
					}
					pages, err = st.ListPagesByStatus(cmd.Context(), status)
				} else {
					pages, err = st.ListPages(cmd.Context())
				}
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if len(pages) == 0 {
					fmt.Fprintln(stdout, "No pages")
					return nil
				}

				colorize := shouldColorize(stdout)
				rows := make([][]string, 0, len(pages))
				for _, page := range pages {
					id, name, status, progress := pageCells(page, colorize)
					rows = append(rows, []string{
						id,
						strconv.FormatInt(page.Order, 10),
						name,
						string(page.Origin),
						status,
						progress,
						formatTime(page.UpdatedAt),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]column{
						{"ID", false},
						{"ORDER", true},
						{"NAME", false},
						{"ORIGIN", false},
						{"STATUS", false},
						{"PROGRESS", true},
						{"UPDATED", false},
					},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only list pages with this status")
	return cmd
}

func newPagesShowCommand(ctx *commandContext) *cobra.Command {
	var showText bool

	cmd := &cobra.Command{
		Use:          "show <page-id>",
		Short:        "Show a page's details, artifacts, and processing log",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				page, err := resolvePage(cmd, st, args[0])
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Page:      %s\n", page.ID)
				fmt.Fprintf(stdout, "Name:      %s\n", page.FileName)
				fmt.Fprintf(stdout, "Origin:    %s\n", page.Origin)
				if page.Origin == store.OriginPDFGenerated {
					fmt.Fprintf(stdout, "Source:    file %s, page %d\n", shortID(page.FileID), page.PageNumber)
				}
				fmt.Fprintf(stdout, "Status:    %s (%.0f%%)\n", page.Status, page.Progress)
				if page.Width > 0 {
					fmt.Fprintf(stdout, "Size:      %dx%d px, %s\n", page.Width, page.Height, formatSize(page.FileSize))
				}
				if page.OCRConfidence > 0 {
					fmt.Fprintf(stdout, "OCR:       %.0f%% confidence, %d chars\n", page.OCRConfidence*100, len(page.OCRText))
				}
				if page.ProcessedAt != nil {
					fmt.Fprintf(stdout, "Processed: %s\n", formatTime(*page.ProcessedAt))
				}

				if len(page.Outputs) > 0 {
					fmt.Fprintln(stdout, "\nArtifacts:")
					for _, output := range page.Outputs {
						fmt.Fprintf(stdout, "  %-8s %s (%s)\n", output.Kind, output.Path, formatSize(output.Size))
					}
				}
				if len(page.Logs) > 0 {
					fmt.Fprintln(stdout, "\nLog:")
					for _, entry := range page.Logs {
						fmt.Fprintf(stdout, "  %s %-5s %s\n", formatTime(entry.At), entry.Level, entry.Message)
					}
				}
				if showText && page.OCRText != "" {
					fmt.Fprintln(stdout, "\nRecognized text:")
					fmt.Fprintln(stdout, page.OCRText)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showText, "text", false, "Print the recognized text")
	return cmd
}

func newPagesDeleteCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:          "delete [<page-id>...]",
		Short:        "Delete pages and their queue entries",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("specify page ids or --all")
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				stdout := cmd.OutOrStdout()
				if all {
					count, err := st.DeleteAllPages(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(stdout, "Deleted %d pages and cleared the queue\n", count)
					return nil
				}
				for _, arg := range args {
					page, err := resolvePage(cmd, st, arg)
					if err != nil {
						return err
					}
					if _, err := st.DeletePage(cmd.Context(), page.ID); err != nil {
						return err
					}
					fmt.Fprintf(stdout, "Deleted page %s\n", shortID(page.ID))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every page")
	return cmd
}

func newPagesReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "reorder <page-id>...",
		Short:        "Reassign display order; pages take the position of their argument",
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				orders := make([]store.PageOrder, 0, len(args))
				for position, arg := range args {
					page, err := resolvePage(cmd, st, arg)
					if err != nil {
						return err
					}
					orders = append(orders, store.PageOrder{ID: page.ID, Order: int64(position)})
				}
				if err := st.BulkUpdateOrder(cmd.Context(), orders); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reordered %d pages\n", len(orders))
				return nil
			})
		},
	}
}

func newPagesRetryCommand(ctx *commandContext) *cobra.Command {
	var priority int

	cmd := &cobra.Command{
		Use:          "retry <page-id>...",
		Short:        "Re-process failed pages",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(cfg *config.Config, st *store.Store, manager *pipeline.Manager) error {
				var pages []*store.Page
				for _, arg := range args {
					page, err := resolvePage(cmd, st, arg)
					if err != nil {
						return err
					}
					if err := manager.RetryPage(cmd.Context(), page.ID, priority); err != nil {
						return err
					}
					pages = append(pages, page)
				}
				manager.Wait()
				return printProcessingSummary(cmd.OutOrStdout(), st, cmd.Context(), pages)
			})
		},
	}
	cmd.Flags().IntVar(&priority, "priority", 0, "Queue priority")
	return cmd
}

func newPagesRegenerateCommand(ctx *commandContext) *cobra.Command {
	var priority int

	cmd := &cobra.Command{
		Use:          "regenerate <page-id>...",
		Short:        "Regenerate artifacts without repeating recognition",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(cfg *config.Config, st *store.Store, manager *pipeline.Manager) error {
				var pages []*store.Page
				for _, arg := range args {
					page, err := resolvePage(cmd, st, arg)
					if err != nil {
						return err
					}
					if err := manager.RegeneratePage(cmd.Context(), page.ID, priority); err != nil {
						return err
					}
					pages = append(pages, page)
				}
				manager.Wait()
				return printProcessingSummary(cmd.OutOrStdout(), st, cmd.Context(), pages)
			})
		},
	}
	cmd.Flags().IntVar(&priority, "priority", 0, "Queue priority")
	return cmd
}

// resolvePage accepts a full page id or an unambiguous prefix.
func resolvePage(cmd *cobra.Command, st *store.Store, arg string) (*store.Page, error) {
	page, err := st.GetPage(cmd.Context(), arg)
	if err != nil {
		return nil, err
	}
	if page != nil {
		return page, nil
	}

	pages, err := st.ListPages(cmd.Context())
	if err != nil {
		return nil, err
	}
	var match *store.Page
	for _, candidate := range pages {
		if len(arg) >= 4 && len(candidate.ID) >= len(arg) && candidate.ID[:len(arg)] == arg {
			if match != nil {
				return nil, fmt.Errorf("page id prefix %q is ambiguous", arg)
			}
			match = candidate
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no page with id %q", arg)
	}
	return match, nil
}
