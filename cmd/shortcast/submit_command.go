package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortcast/internal/generation"
	"shortcast/internal/intake"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		contentFile string
		voice       string
		speed       float64
		kind        string
		publishAt   string
		customID    string
	)

	cmd := &cobra.Command{
		Use:   "submit [content]",
		Short: "Submit a new generation job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerKey, err := ctx.ownerKey()
			if err != nil {
				return err
			}

			content, err := resolveContent(args, contentFile)
			if err != nil {
				return err
			}

			when, err := parsePublishTime(publishAt)
			if err != nil {
				return err
			}

			gate, err := ctx.intake()
			if err != nil {
				return err
			}

			job, err := gate.Submit(cmd.Context(), intake.SubmitRequest{
				OwnerKey:  ownerKey,
				Content:   content,
				Voice:     voice,
				Speed:     speed,
				Kind:      kind,
				PublishAt: when,
				CustomID:  customID,
			})
			if err != nil {
				return err
			}

			segments := 0
			if cfg, err := ctx.ensureConfig(); err == nil {
				segments = generation.EstimateSegments(job.Content, cfg.Generation.SegmentMarker)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s queued (~%d segments, publish target %s)\n",
				job.ID, segments, job.PublishAt.Local().Format(time.RFC1123))
			return nil
		},
	}

	cmd.Flags().StringVarP(&contentFile, "file", "f", "", "Read content from a file instead of the argument")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice to synthesize with")
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "Playback speed (0.25-4.0)")
	cmd.Flags().StringVar(&kind, "kind", "short", "Artifact kind: short or long")
	cmd.Flags().StringVar(&publishAt, "publish-at", "", "Target publish time (RFC 3339, must be in the future)")
	cmd.Flags().StringVar(&customID, "id", "", "Custom job id")

	return cmd
}

func resolveContent(args []string, contentFile string) (string, error) {
	if contentFile != "" {
		data, err := os.ReadFile(contentFile)
		if err != nil {
			return "", fmt.Errorf("read content file: %w", err)
		}
		return string(data), nil
	}
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	return "", errors.New("content required: pass it as an argument or with --file")
}

func parsePublishTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("--publish-at is required")
	}
	when, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --publish-at: %w", err)
	}
	return when, nil
}
