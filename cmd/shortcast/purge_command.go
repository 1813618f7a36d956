package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPurgeCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove terminal jobs older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			store, err := ctx.jobStore()
			if err != nil {
				return err
			}
			cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
			purged, err := store.Purge(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d jobs older than %d days\n", purged, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Age threshold in days")
	return cmd
}
