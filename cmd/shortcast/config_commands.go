package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shortcast/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set owner keys and service endpoints before running shortcastd.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration OK")
			fmt.Fprintf(out, "  Data dir:    %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "  Staging dir: %s\n", cfg.Paths.StagingDir)
			fmt.Fprintf(out, "  Log dir:     %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "  Owners:      %d\n", len(cfg.Owners))
			fmt.Fprintf(out, "  Generation:  %s\n", cfg.Generation.BaseURL)
			fmt.Fprintf(out, "  Publish:     %s\n", cfg.Publish.BaseURL)
			if cfg.Webhook.URL == "" {
				fmt.Fprintln(out, "  Webhook:     disabled")
			} else {
				fmt.Fprintf(out, "  Webhook:     %s\n", cfg.Webhook.URL)
			}
			return nil
		},
	}
}
