package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shortcast/internal/uploadqueue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List upload queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := ctx.queueStore()
			if err != nil {
				return err
			}

			var filter *uploadqueue.Status
			if statusFilter != "" {
				status, ok := uploadqueue.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				filter = &status
			}

			var rows [][]string
			for _, item := range queue.Snapshot() {
				if filter != nil && item.Status != *filter {
					continue
				}
				scheduled := item.ScheduledAt.Local().Format("2006-01-02 15:04")
				rows = append(rows, []string{
					item.Title,
					string(item.Status),
					scheduled,
					fmt.Sprintf("%d", item.UploadAttempts),
					item.RemoteID,
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Upload queue is empty")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Title", "Status", "Scheduled", "Attempts", "Remote ID"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status")
	return cmd
}
