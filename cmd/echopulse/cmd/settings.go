package cmd

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/echopulse/internal/domain/settings"
	"github.com/oshokin/echopulse/internal/service/client"
	"github.com/oshokin/echopulse/internal/service/common"
	store "github.com/oshokin/echopulse/internal/service/settings"
)

// errNothingToSet is returned when settings set is called without flags.
var errNothingToSet = errors.New("nothing to set: pass --sensitivity, --auto-resolve or --sounds")

func newSettingsCommand() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change user settings.",
	}

	settingsCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the current settings.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
					return printSettings(out)(c.GetSettings(ctx))
				})
			},
		},
		newSettingsSetCommand(),
		newKeywordCommand("keyword-add", "Add a detection keyword.", (*common.Client).AddKeyword),
		newKeywordCommand("keyword-remove", "Remove a detection keyword.", (*common.Client).RemoveKeyword),
	)

	return settingsCmd
}

func newSettingsSetCommand() *cobra.Command {
	var (
		sensitivity string
		autoResolve int
		sounds      bool
	)

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings.",
		Long:  "Change settings. A new auto-resolve timeout applies to alerts raised afterwards.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var u store.Update

			if cmd.Flags().Changed("sensitivity") {
				s := domain.Sensitivity(sensitivity)
				u.Sensitivity = &s
			}

			if cmd.Flags().Changed("auto-resolve") {
				u.AutoResolveTimeoutMinutes = &autoResolve
			}

			if cmd.Flags().Changed("sounds") {
				u.NotificationSounds = &sounds
			}

			if u == (store.Update{}) {
				return errNothingToSet
			}

			return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
				return printSettings(out)(c.UpdateSettings(ctx, u))
			})
		},
	}

	setCmd.Flags().StringVar(&sensitivity, "sensitivity", "", "detection sensitivity: low, medium, high")
	setCmd.Flags().IntVar(&autoResolve, "auto-resolve", domain.DefaultAutoResolveTimeoutMinutes,
		"minutes (1..1440) without new detections before an alert resolves itself")
	setCmd.Flags().BoolVar(&sounds, "sounds", true, "play notification sounds")

	return setCmd
}

func newKeywordCommand(
	use, short string,
	action func(*common.Client, context.Context, string) (domain.Settings, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <keyword>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, c *common.Client, out io.Writer) error {
				return printSettings(out)(action(c, ctx, args[0]))
			})
		},
	}
}

func printSettings(out io.Writer) func(domain.Settings, error) error {
	return func(s domain.Settings, err error) error {
		if err != nil {
			return err
		}

		return client.PrintSettings(out, s)
	}
}
