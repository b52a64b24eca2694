package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/echopulse/internal/api/grpc/echopulse"
	"github.com/oshokin/echopulse/internal/config"
	domain "github.com/oshokin/echopulse/internal/domain/settings"
	"github.com/oshokin/echopulse/internal/logger"
	"github.com/oshokin/echopulse/internal/observability/metrics"
	"github.com/oshokin/echopulse/internal/repository/contacts"
	"github.com/oshokin/echopulse/internal/service/detection"
	"github.com/oshokin/echopulse/internal/service/ledger"
	"github.com/oshokin/echopulse/internal/service/notification"
	"github.com/oshokin/echopulse/internal/service/roster"
	"github.com/oshokin/echopulse/internal/service/session"
	store "github.com/oshokin/echopulse/internal/service/settings"
	"github.com/oshokin/echopulse/internal/version"
)

// Options controls the echopulse-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StateFile specifies the path to persist the contact roster JSON.
	StateFile string
	// LogLevel overrides the log level from the settings file.
	LogLevel string
	// Ready, when set, receives the bound gRPC address once the server accepts connections.
	Ready func(address string)
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

const metricsReadHeaderTimeout = 5 * time.Second

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "echopulse-server")

	// Load configuration first to get server settings.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}

	if err = logger.Configure(level); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	// Use StateFile from config unless overridden by command line option.
	stateFile := cfg.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(cfg.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	logger.InfoKV(ctx, "Starting EchoPulse server", version.KV()...)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	engine, err := newEngine(ctx, cfg, opts.ConfigPath, stateFile, m)
	if err != nil {
		return err
	}

	defer engine.alerts.Close()

	if cfg.StartListening {
		engine.monitor.Start(ctx)
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(api.AuditInterceptor(ctx)))
	api.RegisterEchoPulseServiceServer(grpcServer,
		api.NewServer(engine.roster, engine.alerts, engine.monitor, engine.preferences))

	logger.InfoKV(ctx, "EchoPulse server listening",
		"listen_address", lis.Addr().String(),
		"state_file", stateFile,
		"contacts", engine.roster.Len(),
		"delivery", engine.delivery,
	)

	if opts.Ready != nil {
		opts.Ready(lis.Addr().String())
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", serveErr)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	if cfg.MetricsAddress != "" {
		group.Go(func() error {
			return serveMetrics(groupCtx, cfg.MetricsAddress, registry)
		})
	}

	if cfg.MQTT.Enabled() {
		processor := detection.NewProcessor(engine.monitor, engine.alerts, engine.preferences,
			cfg.MQTT.DedupWindow, detection.WithMetrics(m))

		group.Go(func() error {
			return detection.NewSubscriber(cfg.MQTT, processor).Run(groupCtx)
		})
	}

	err = group.Wait()

	logger.Info(ctx, "GRPC server stopped")

	return err
}

// engine bundles the wired components.
type engine struct {
	roster      *roster.Roster
	alerts      *ledger.Ledger
	monitor     *session.Session
	preferences *store.Store
	// delivery names the notification transport for the startup log.
	delivery string
}

// newEngine wires the roster, the notification pipeline, the ledger and the session.
func newEngine(
	ctx context.Context,
	cfg *config.Config,
	configPath, stateFile string,
	m *metrics.Metrics,
) (*engine, error) {
	// Settings changes are written back to the settings file.
	preferences, err := store.NewStore(cfg.Settings, store.WithSaver(func(_ context.Context, s domain.Settings) error {
		next := *cfg
		next.Settings = s

		return config.Save(configPath, &next)
	}))
	if err != nil {
		return nil, fmt.Errorf("initialise settings: %w", err)
	}

	contactRoster, err := roster.New(ctx, roster.WithRepository(contacts.NewFileRepository(stateFile)))
	if err != nil {
		return nil, fmt.Errorf("initialise roster: %w", err)
	}

	var (
		sender   notification.Sender = notification.LogSender{}
		delivery                     = "log"
	)

	if cfg.Delivery.URLTemplate != "" {
		shoutrrrSender, senderErr := notification.NewShoutrrrSender(cfg.Delivery.URLTemplate, cfg.Delivery.Timeout)
		if senderErr != nil {
			return nil, fmt.Errorf("initialise delivery: %w", senderErr)
		}

		sender, delivery = shoutrrrSender, "shoutrrr"
	}

	dispatcher := notification.NewDispatcher(sender,
		notification.WithDeliveryTimeout(cfg.Delivery.Timeout),
		notification.WithMetrics(m),
	)

	alerts := ledger.New(ctx, preferences, ledger.WithMetrics(m))

	return &engine{
		roster:      contactRoster,
		alerts:      alerts,
		monitor:     session.New(contactRoster, dispatcher, alerts, session.WithMetrics(m)),
		preferences: preferences,
		delivery:    delivery,
	}, nil
}

// serveMetrics exposes the registry on address until ctx is canceled.
func serveMetrics(ctx context.Context, address string, registry *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: logger.StdLogger("promhttp", zapcore.ErrorLevel),
		Registry: registry,
	}))

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
		ErrorLog:          logger.StdLogger("metrics", zapcore.ErrorLevel),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsReadHeaderTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "Metrics endpoint listening", "metrics_address", address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
