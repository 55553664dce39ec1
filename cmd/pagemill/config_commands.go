package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pagemill/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a sample configuration file",
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&targetPath, "path", "", "Target path for the sample config")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing config file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "show",
		Short:        "Print the resolved configuration",
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if ctx.configFlag != nil {
				configPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolvedPath, exists, err := config.Load(configPath)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(stdout, "Config file: %s\n", resolvedPath)
			} else {
				fmt.Fprintf(stdout, "Config file: %s (not found, defaults in effect)\n", resolvedPath)
			}
			fmt.Fprintf(stdout, "Data dir:    %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(stdout, "Log dir:     %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(stdout, "Export dir:  %s\n", cfg.Paths.ExportDir)
			fmt.Fprintf(stdout, "Database:    %s\n", cfg.DatabasePath())
			fmt.Fprintf(stdout, "OCR engine:  %s (languages %s)\n", cfg.OCR.Engine, strings.Join(cfg.OCR.Languages, "+"))
			fmt.Fprintf(stdout, "Lanes:       recognition=%d generation=%d\n",
				cfg.Workflow.RecognitionConcurrency, cfg.Workflow.GenerationConcurrency)
			fmt.Fprintf(stdout, "Logging:     %s/%s\n", cfg.Logging.Format, cfg.Logging.Level)
			return nil
		},
	}
	return cmd
}
