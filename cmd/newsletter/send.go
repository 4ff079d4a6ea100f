package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send [id]",
		Short: "Email a stored briefing to every subscriber",
		Long: `Deliver the newsletter with the given id, or the newest published one when
no id is given (falling back to the newest record). Recipients come from
NEWSLETTER_RECIPIENTS and the subscribers file and are blind-copied.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}

			ctx := cmd.Context()
			application, _, err := setup(ctx, "send")
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.Send(ctx, id)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to %d recipient(s)\n", report.Newsletter.ID, report.Recipients)
			if report.MarkErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: delivered but the sent marker was not saved: %v\n", report.MarkErr)
			}
			return nil
		},
	}
}
