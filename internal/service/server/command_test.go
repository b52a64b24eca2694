package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/echopulse/internal/config"
	domain "github.com/oshokin/echopulse/internal/domain/settings"
	"github.com/oshokin/echopulse/internal/observability/metrics"
	store "github.com/oshokin/echopulse/internal/service/settings"
)

// TestResolveListenAddress covers override, port extraction and errors.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	address, err := resolveListenAddress("server.example.com:8080", "")
	require.NoError(t, err)
	require.Equal(t, ":8080", address)

	address, err = resolveListenAddress("server.example.com:8080", "127.0.0.1:9090")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", address)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}

// TestRun_MissingConfig fails before binding anything.
func TestRun_MissingConfig(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

// TestNewEngine_PersistsSettingsAndRoster writes changes back to disk.
func TestNewEngine_PersistsSettingsAndRoster(t *testing.T) {
	t.Parallel()

	var (
		ctx        = context.Background()
		dir        = t.TempDir()
		configPath = filepath.Join(dir, "settings.yaml")
		stateFile  = filepath.Join(dir, "contacts.json")
	)

	cfg := &config.Config{
		ServerAddress: "127.0.0.1:8080",
		Settings:      domain.Default(),
	}
	require.NoError(t, config.Save(configPath, cfg))

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	e, err := newEngine(ctx, cfg, configPath, stateFile, m)
	require.NoError(t, err)

	defer e.alerts.Close()

	require.Equal(t, "log", e.delivery)

	minutes := 15
	_, err = e.preferences.Update(ctx, store.Update{AutoResolveTimeoutMinutes: &minutes})
	require.NoError(t, err)

	reloaded, err := config.Load(configPath)
	require.NoError(t, err)
	require.Equal(t, 15, reloaded.Settings.AutoResolveTimeoutMinutes)

	_, err = e.roster.Add(ctx, "Jane Smith", "+15551234567", "Daughter", false)
	require.NoError(t, err)

	_, err = os.Stat(stateFile)
	require.NoError(t, err)
}

// TestNewEngine_InvalidDeliveryTemplate rejects an unknown shoutrrr service.
func TestNewEngine_InvalidDeliveryTemplate(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		ServerAddress: "127.0.0.1:8080",
		Settings:      domain.Default(),
		Delivery:      config.Delivery{URLTemplate: "nosuchservice://{phone}"},
	}

	_, err := newEngine(context.Background(), cfg, filepath.Join(t.TempDir(), "settings.yaml"),
		filepath.Join(t.TempDir(), "contacts.json"), nil)
	require.Error(t, err)
}
