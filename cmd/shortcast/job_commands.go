package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shortcast/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFilter string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.jobStore()
			if err != nil {
				return err
			}

			filter := jobs.Filter{Limit: limit}
			if statusFilter != "" {
				status, ok := jobs.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				filter.Status = &status
			}
			if ownerKey, err := ctx.ownerKey(); err == nil {
				filter.OwnerKey = ownerKey
			}

			list, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					job.ID,
					string(job.Status),
					strconv.Itoa(job.Progress) + "%",
					string(job.Kind),
					strconv.Itoa(job.VideosGenerated),
					strconv.Itoa(job.VideosPublished),
					job.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Status", "Progress", "Kind", "Generated", "Published", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")
	return cmd
}

func newJobCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Show one job's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerKey, err := ctx.ownerKey()
			if err != nil {
				return err
			}
			gate, err := ctx.intake()
			if err != nil {
				return err
			}
			job, err := gate.Status(cmd.Context(), ownerKey, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", job.ID)
			fmt.Fprintf(out, "Status:    %s\n", job.Status)
			fmt.Fprintf(out, "Progress:  %d%%\n", job.Progress)
			if job.Message != "" {
				fmt.Fprintf(out, "Message:   %s\n", job.Message)
			}
			fmt.Fprintf(out, "Kind:      %s\n", job.Kind)
			fmt.Fprintf(out, "Generated: %d\n", job.VideosGenerated)
			fmt.Fprintf(out, "Published: %d\n", job.VideosPublished)
			fmt.Fprintf(out, "Created:   %s\n", job.CreatedAt.Local().Format(time.RFC1123))
			if job.CompletedAt != nil {
				fmt.Fprintf(out, "Completed: %s\n", job.CompletedAt.Local().Format(time.RFC1123))
			}
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
			}
			return nil
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a queued or processing job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerKey, err := ctx.ownerKey()
			if err != nil {
				return err
			}
			gate, err := ctx.intake()
			if err != nil {
				return err
			}
			if err := gate.Cancel(cmd.Context(), ownerKey, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s cancelled\n", args[0])
			return nil
		},
	}
}
