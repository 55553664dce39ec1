package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pagemill/internal/config"
	"pagemill/internal/pipeline"
	"pagemill/internal/store"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:          "export <page-id>...",
		Short:        "Copy a completed page's artifacts to the export directory",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(cfg *config.Config, st *store.Store, manager *pipeline.Manager) error {
				stdout := cmd.OutOrStdout()
				for _, arg := range args {
					page, err := resolvePage(cmd, st, arg)
					if err != nil {
						return err
					}
					exported, err := manager.ExportPage(cmd.Context(), page.ID, destDir)
					if err != nil {
						return err
					}
					fmt.Fprintf(stdout, "Exported %d artifacts for page %s:\n", len(exported), shortID(page.ID))
					for _, path := range exported {
						fmt.Fprintf(stdout, "  %s\n", path)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&destDir, "dest", "", "Destination directory (defaults to the configured export directory)")
	return cmd
}
