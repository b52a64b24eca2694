package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/echopulse/internal/config"
	"github.com/oshokin/echopulse/internal/service/client"
	"github.com/oshokin/echopulse/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the server address from the configuration file.
	serverAddress string

	// rootCmd represents the base command of the client.
	rootCmd = &cobra.Command{
		Use:   "echopulse",
		Short: "Manage an EchoPulse server.",
		Long: `Command-line client of the EchoPulse server.

Manages the emergency contact roster, inspects and resolves alerts, toggles
monitoring, submits detections and edits user settings.
Server address is loaded from configuration file unless --server is given.`,
		SilenceUsage: true,
	}
)

// Execute runs the echopulse CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run connects to the server and performs action with the command output.
func run(cmd *cobra.Command, action client.Action) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return client.Run(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Output:        cmd.OutOrStdout(),
	}, action)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "a", "", "server address (overrides config)")

	rootCmd.AddCommand(
		newContactsCommand(),
		newAlertsCommand(),
		newMonitorCommand(),
		newDetectCommand(),
		newSettingsCommand(),
	)
}
