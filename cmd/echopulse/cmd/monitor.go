package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/oshokin/echopulse/internal/service/client"
	"github.com/oshokin/echopulse/internal/service/common"
	"github.com/oshokin/echopulse/internal/service/session"
)

func newMonitorCommand() *cobra.Command {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start, stop and inspect monitoring.",
		Long:  "Detections raise alerts only while monitoring is started. Stopping does not affect alerts already raised.",
	}

	monitorCmd.AddCommand(
		newMonitorActionCommand("start", "Start listening for detections.", (*common.Client).StartMonitoring),
		newMonitorActionCommand("stop", "Stop listening for detections.", (*common.Client).StopMonitoring),
		newMonitorActionCommand("status", "Show the monitoring state.", (*common.Client).MonitoringStatus),
	)

	return monitorCmd
}

func newMonitorActionCommand(
	use, short string,
	action func(*common.Client, context.Context) (session.Status, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
				st, err := action(c, ctx)
				if err != nil {
					return err
				}

				return client.PrintStatus(out, st)
			})
		},
	}
}
