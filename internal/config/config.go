package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/echopulse/internal/domain/settings"
)

// Config holds the parameters shared by the EchoPulse binaries.
type Config struct {
	// ServerAddress is the gRPC server address used by clients and, port only, by the server.
	ServerAddress string `yaml:"server_addr"`
	// StateFile is the path to the JSON file persisting the contact roster.
	StateFile string `yaml:"state_file"`
	// Timeout is the duration for RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level of the global logger.
	LogLevel string `yaml:"log_level,omitempty"`
	// StartListening starts the monitoring session together with the server.
	StartListening bool `yaml:"start_listening,omitempty"`
	// MetricsAddress enables the Prometheus endpoint when set.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// Settings are the user settings the server starts with.
	Settings settings.Settings `yaml:"settings"`
	// Delivery configures the notification transport.
	Delivery Delivery `yaml:"delivery"`
	// MQTT configures the optional detection subscriber.
	MQTT MQTT `yaml:"mqtt,omitempty"`
}

// Delivery configures how notifications reach contacts.
type Delivery struct {
	// URLTemplate is a shoutrrr service URL with {phone} and {name} placeholders.
	// Notifications are only logged when it is empty.
	URLTemplate string `yaml:"url_template,omitempty"`
	// Timeout bounds a single contact delivery attempt.
	Timeout time.Duration `yaml:"timeout"`
}

// MQTT configures the detection subscriber. It is disabled when Broker is empty.
type MQTT struct {
	Broker   string `yaml:"broker,omitempty"`
	Topic    string `yaml:"topic,omitempty"`
	ClientID string `yaml:"client_id,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	QoS      byte   `yaml:"qos,omitempty"`
	// DedupWindow suppresses repeated detections of the same label.
	DedupWindow time.Duration `yaml:"dedup_window,omitempty"`
}

// Enabled reports whether a broker is configured.
func (m *MQTT) Enabled() bool {
	return m.Broker != ""
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "echopulse-settings.yaml"

	// DefaultStateFilename is the default filename for the persisted roster.
	DefaultStateFilename = "echopulse-contacts.json"

	// DefaultTimeout is the default duration for RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultDeliveryTimeout bounds a single contact delivery attempt.
	DefaultDeliveryTimeout = 5 * time.Second

	// DefaultMQTTTopic is the topic detections are published to.
	DefaultMQTTTopic = "echopulse/detections"

	// DefaultMQTTClientID identifies the server at the broker.
	DefaultMQTTClientID = "echopulse-server"

	// DefaultDedupWindow suppresses repeated labels published in a burst.
	DefaultDedupWindow = 10 * time.Second

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600

	maxMQTTQoS = 2
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errInvalidQoS is returned for an MQTT QoS outside 0..2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
	// errPlaceholderMissing is returned when the delivery template cannot address a contact.
	errPlaceholderMissing = errors.New("delivery url template must contain {phone}")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Config{Settings: settings.Default()}
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may hold transport credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
func Validate(cfg *Config) error {
	if cfg.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	// A settings block omitted entirely keeps the application defaults.
	if cfg.Settings.Sensitivity == "" && cfg.Settings.AutoResolveTimeoutMinutes == 0 {
		cfg.Settings = settings.Default()
	}

	if err := cfg.Settings.Validate(); err != nil {
		return fmt.Errorf("invalid user settings: %w", err)
	}

	if err := validateDelivery(&cfg.Delivery); err != nil {
		return err
	}

	if cfg.MetricsAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics address: %w", err)
		}
	}

	return validateMQTT(&cfg.MQTT)
}

func validateDelivery(delivery *Delivery) error {
	if delivery.Timeout <= 0 {
		delivery.Timeout = DefaultDeliveryTimeout
	}

	if delivery.URLTemplate != "" && !strings.Contains(delivery.URLTemplate, "{phone}") {
		return errPlaceholderMissing
	}

	return nil
}

func validateMQTT(m *MQTT) error {
	if !m.Enabled() {
		return nil
	}

	if m.QoS > maxMQTTQoS {
		return errInvalidQoS
	}

	if m.Topic == "" {
		m.Topic = DefaultMQTTTopic
	}

	if m.ClientID == "" {
		m.ClientID = DefaultMQTTClientID
	}

	if m.DedupWindow <= 0 {
		m.DedupWindow = DefaultDedupWindow
	}

	return nil
}
