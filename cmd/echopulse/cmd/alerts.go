package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/service/client"
	"github.com/oshokin/echopulse/internal/service/common"
	"github.com/oshokin/echopulse/internal/service/ledger"
)

// errUnknownState is returned for an unsupported --state value.
var errUnknownState = fmt.Errorf("state must be one of %q, %q, %q",
	ledger.FilterAll, ledger.FilterActive, ledger.FilterResolved)

func newAlertsCommand() *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and resolve alerts.",
	}

	alertsCmd.AddCommand(
		newAlertsListCommand(),
		newAlertsHistoryCommand(),
		newAlertActionCommand("show", "Show an alert with every notification attempt.", (*common.Client).GetAlert),
		newAlertActionCommand("resolve", "Resolve an alert: the situation is handled.", (*common.Client).ResolveAlert),
		newAlertActionCommand("refresh", "Restart the auto-resolve timer of an active alert.",
			(*common.Client).RefreshAlert),
		newAlertActionCommand("retry", "Notify the current contacts about an active alert again.",
			(*common.Client).RetryNotification),
		&cobra.Command{
			Use:   "stats",
			Short: "Show alert counters.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
					stats, err := c.AlertStats(ctx)
					if err != nil {
						return err
					}

					return client.PrintStats(out, stats)
				})
			},
		},
	)

	return alertsCmd
}

// filterFlags binds --state and --search to a ledger filter.
func filterFlags(cmd *cobra.Command, state, query *string) {
	cmd.Flags().StringVar(state, "state", string(ledger.FilterAll), "filter by state: all, active, resolved")
	cmd.Flags().StringVarP(query, "search", "q", "", "search labels and contact names")
}

func parseFilter(state, query string) (ledger.Filter, error) {
	parsed, ok := ledger.ParseStateFilter(state)
	if !ok {
		return ledger.Filter{}, errUnknownState
	}

	return ledger.Filter{State: parsed, Query: query}, nil
}

func newAlertsListCommand() *cobra.Command {
	var (
		state, query string
		recent       int
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseFilter(state, query)
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
				var alerts []*alert.Alert

				if cmd.Flags().Changed("recent") {
					alerts, err = c.RecentAlerts(ctx, recent)
				} else {
					alerts, err = c.ListAlerts(ctx, filter)
				}

				if err != nil {
					return err
				}

				return client.PrintAlerts(out, alerts)
			})
		},
	}

	filterFlags(listCmd, &state, &query)
	listCmd.Flags().IntVar(&recent, "recent", 0, "show only the N most recent alerts (0 means 5)")

	return listCmd
}

func newAlertsHistoryCommand() *cobra.Command {
	var state, query string

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show alerts grouped by day.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseFilter(state, query)
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
				groups, err := c.AlertHistory(ctx, filter)
				if err != nil {
					return err
				}

				return client.PrintHistory(out, groups)
			})
		},
	}

	filterFlags(historyCmd, &state, &query)

	return historyCmd
}

// newAlertActionCommand builds a command calling action with an alert ID and printing the result.
func newAlertActionCommand(
	use, short string,
	action func(*common.Client, context.Context, string) (*alert.Alert, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <alert-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
				a, err := action(c, ctx, args[0])
				if err != nil {
					return err
				}

				return client.PrintAlert(out, a)
			})
		},
	}
}
