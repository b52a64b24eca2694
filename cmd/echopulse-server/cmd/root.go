package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/echopulse/internal/config"
	"github.com/oshokin/echopulse/internal/service/server"
	"github.com/oshokin/echopulse/internal/version"
)

// options collects the flag values of the server command.
var options server.Options

// rootCmd runs the EchoPulse server.
var rootCmd = &cobra.Command{
	Use:   "echopulse-server [listen-address]",
	Short: "Run the EchoPulse alert and notification server.",
	Long: `Runs the EchoPulse gRPC server. Detections received while monitoring is on
are turned into ordered notifications to the emergency contacts, and every
resulting alert is tracked until it is resolved by hand or times out.

Without a listen address only the port of server_addr from the configuration
file is bound, on all interfaces. Pass an address such as :9090 or
127.0.0.1:8080 to override it.

Contacts are stored in the state file. Alerts are kept in memory.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts := options
	if len(args) > 0 {
		opts.ListenAddress = args[0]
	}

	return server.Run(ctx, &opts)
}

// Execute runs the echopulse-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&options.StateFile, "state-file", "s", "", "contact roster file, overrides state_file")
	flags.StringVarP(&options.LogLevel, "log-level", "l", "", "debug, info, warn or error, overrides log_level")
}
