package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shortcast/internal/jobs"
	"shortcast/internal/preflight"
	"shortcast/internal/uploadqueue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system, job, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, sectionHeader("System Checks", colorize))
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				mark := "ok"
				if !result.Passed {
					mark = "FAIL"
				}
				if colorize {
					if result.Passed {
						mark = ansiGreen + mark + ansiReset
					} else {
						mark = ansiRed + mark + ansiReset
					}
				}
				fmt.Fprintf(out, "  [%s] %s: %s\n", mark, result.Name, result.Detail)
			}
			fmt.Fprintln(out)

			store, err := ctx.jobStore()
			if err != nil {
				return err
			}
			jobStats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, sectionHeader("Jobs", colorize))
			for _, status := range jobs.AllStatuses() {
				if count := jobStats[status]; count > 0 {
					fmt.Fprintf(out, "  %-12s %d\n", status, count)
				}
			}
			fmt.Fprintln(out)

			queue, err := ctx.queueStore()
			if err != nil {
				return err
			}
			queueStats := queue.Stats()
			fmt.Fprintln(out, sectionHeader("Upload Queue", colorize))
			for _, status := range uploadqueue.AllStatuses() {
				if count := queueStats[status]; count > 0 {
					fmt.Fprintf(out, "  %-18s %d\n", status, count)
				}
			}
			return nil
		},
	}
}
