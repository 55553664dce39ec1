package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pagemill/internal/config"
	"pagemill/internal/ingest"
	"pagemill/internal/pipeline"
	"pagemill/internal/store"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var process bool
	var priority int

	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Import images or PDFs as pages",
		Long: "Import source files into the page store. Standalone images become a " +
			"single page; PDFs are split into one page per source page. With " +
			"--process the imported pages are queued and processed immediately.",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			run := func(cfg *config.Config, st *store.Store, manager *pipeline.Manager) error {
				stdout := cmd.OutOrStdout()
				importer := ingest.NewImporter(cfg, st, nil)

				var imported []*store.Page
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}
					result, err := importer.Import(cmd.Context(), path)
					if err != nil {
						return fmt.Errorf("import %s: %w", arg, err)
					}
					imported = append(imported, result.Pages...)
					if result.File != nil {
						fmt.Fprintf(stdout, "Imported %s as %d pages (file %s)\n",
							arg, len(result.Pages), shortID(result.File.ID))
					} else {
						fmt.Fprintf(stdout, "Imported %s as page %s\n",
							arg, shortID(result.Pages[0].ID))
					}
				}

				if !process {
					fmt.Fprintf(stdout, "%d pages imported; run `pagemill process` to start processing\n", len(imported))
					return nil
				}
				for _, page := range imported {
					if err := manager.ProcessPage(cmd.Context(), page.ID, priority); err != nil {
						return err
					}
				}
				manager.Wait()
				return printProcessingSummary(stdout, st, cmd.Context(), imported)
			}

			if process {
				return ctx.withManager(run)
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				return run(cfg, st, nil)
			})
		},
	}
	cmd.Flags().BoolVar(&process, "process", false, "Queue and process the imported pages immediately")
	cmd.Flags().IntVar(&priority, "priority", 0, "Queue priority for --process")
	return cmd
}
