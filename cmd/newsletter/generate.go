package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func generateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "generate [focus...]",
		Short: "Generate a draft briefing and print it as JSON",
		Long: `Ask the primary provider for this week's storylines, enrich them with a
Card Watch scan when a Perplexity key is configured, and print the normalized
draft. Nothing is stored; feed the output to "newsletter publish".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, logger, err := setup(ctx, "generate")
			if err != nil {
				return err
			}
			defer application.Close()

			briefing, err := application.Generate(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			logger.Info("briefing ready", "id", briefing.Newsletter.ID, "enrichment", briefing.Scan.State.String())

			payload, err := json.MarshalIndent(briefing.Newsletter, "", "  ")
			if err != nil {
				return fmt.Errorf("encode briefing: %w", err)
			}
			payload = append(payload, '\n')

			if out != "" {
				if err := os.WriteFile(out, payload, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				logger.Info("briefing written", "path", out)
			}

			_, err = cmd.OutOrStdout().Write(payload)
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Also write the briefing JSON to this file")

	return cmd
}
