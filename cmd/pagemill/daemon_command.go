package main

import (
	"github.com/spf13/cobra"

	"pagemill/internal/daemon"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the pagemill daemon in the foreground",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemon.Run(cmd.Context(), cfg, daemon.Options{
				LogLevel: logLevel,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}
