package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ScoutNewsletter/internal/usecase"
)

func publishCmd() *cobra.Command {
	var promote bool

	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Upsert a briefing JSON payload into the store",
		Long: `Normalize the payload read from <file> ("-" for stdin) and upsert it by id.
New records go to the head of the collection; existing ones are replaced in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd, args[0])
			if err != nil {
				return err
			}

			var payload any
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("parse payload %s: %w", args[0], err)
			}

			ctx := cmd.Context()
			application, _, err := setup(ctx, "publish")
			if err != nil {
				return err
			}
			defer application.Close()

			n, err := application.Publish(ctx, payload, usecase.PublishOptions{Promote: promote})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (%s): %s\n", n.ID, n.Status, n.Headline)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&promote, "promote", "p", false, "Force the stored record to published")

	return cmd
}

func readPayload(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}
