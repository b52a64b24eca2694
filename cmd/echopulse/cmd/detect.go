package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oshokin/echopulse/internal/service/client"
	"github.com/oshokin/echopulse/internal/service/common"
)

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <label> <confidence>",
		Short: "Submit a classified detection.",
		Long: `Submit a detection as a detection source would, e.g. echopulse detect "Call for help" 88.

Every contact is notified in order and an alert is raised. The detection is
refused while monitoring is stopped. An unavailable server is retried until
the command is interrupted.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // Label and confidence.
		RunE: func(cmd *cobra.Command, args []string) error {
			confidence, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("confidence must be an integer: %w", err)
			}

			return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
				opened, err := client.SubmitDetection(ctx, c, args[0], confidence)
				if err != nil {
					return err
				}

				return client.PrintAlert(out, opened)
			})
		},
	}
}
