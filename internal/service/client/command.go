package client

import (
	"context"
	"io"
	"os"

	"github.com/oshokin/echopulse/internal/config"
	"github.com/oshokin/echopulse/internal/logger"
	"github.com/oshokin/echopulse/internal/service/common"
)

// Options configures how commands reach the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Output receives rendered results, os.Stdout when nil.
	Output io.Writer
}

// Action is one client command.
type Action func(ctx context.Context, client *common.Client, out io.Writer) error

// Run connects to the server and performs action.
func Run(ctx context.Context, opts *Options, action Action) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "echopulse")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if err = logger.Configure(cfg.LogLevel); err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	dialOptions := []common.Option{common.WithCallTimeout(cfg.Timeout)}

	// Identify current user and hostname for the server audit log.
	if actor, actorErr := common.DetectActor(); actorErr == nil {
		dialOptions = append(dialOptions, common.WithActor(actor))
	} else {
		logger.WarnKV(ctx, "Unable to detect actor", "error", actorErr)
	}

	client, err := common.Dial(ctx, serverAddress, dialOptions...)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Connected to server", "server_address", serverAddress)

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	return action(ctx, client, out)
}
