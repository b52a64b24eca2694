package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/echopulse/internal/config"
	"github.com/oshokin/echopulse/internal/domain/failure"
	"github.com/oshokin/echopulse/internal/logger"
)

const (
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

// errSubscribeTimeout is returned when the broker does not acknowledge the subscription.
var errSubscribeTimeout = errors.New("mqtt subscribe timed out")

var attachLoggersOnce sync.Once

// attachLoggers routes the paho package loggers into zap.
func attachLoggers() {
	attachLoggersOnce.Do(func() {
		mqtt.ERROR = logger.StdLogger("mqtt", zapcore.ErrorLevel)
		mqtt.CRITICAL = logger.StdLogger("mqtt", zapcore.ErrorLevel)
		mqtt.WARN = logger.StdLogger("mqtt", zapcore.WarnLevel)
	})
}

// Subscriber consumes detections from an MQTT topic.
type Subscriber struct {
	cfg       config.MQTT
	processor *Processor
}

// NewSubscriber creates a subscriber for cfg. Call Run to connect.
func NewSubscriber(cfg config.MQTT, processor *Processor) *Subscriber {
	return &Subscriber{
		cfg:       cfg,
		processor: processor,
	}
}

// Run connects to the broker, subscribes to the detection topic and blocks
// until ctx is canceled. The client reconnects on its own after connection loss.
func (s *Subscriber) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "detection")

	attachLoggers()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetUsername(s.cfg.Username)
	opts.SetPassword(s.cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		// Clean sessions forget subscriptions, so subscribe on every (re)connect.
		if err := s.subscribe(ctx, client); err != nil {
			logger.ErrorKV(ctx, "Failed to subscribe to detections", "topic", s.cfg.Topic, "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.WarnKV(ctx, "MQTT connection lost", "broker", s.cfg.Broker, "error", err)
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect to mqtt broker %s: %w", s.cfg.Broker, err)
		}
	case <-ctx.Done():
		client.Disconnect(disconnectQuiesce)

		return nil
	}

	logger.InfoKV(ctx, "Detection subscriber started", "broker", s.cfg.Broker, "topic", s.cfg.Topic)

	<-ctx.Done()

	client.Disconnect(disconnectQuiesce)
	logger.Info(ctx, "Detection subscriber stopped")

	return nil
}

func (s *Subscriber) subscribe(ctx context.Context, client mqtt.Client) error {
	token := client.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		s.HandlePayload(ctx, msg.Payload())
	})

	if !token.WaitTimeout(connectTimeout) {
		return errSubscribeTimeout
	}

	return token.Error()
}

// HandlePayload decodes and processes one message, logging the outcome.
func (s *Subscriber) HandlePayload(ctx context.Context, payload []byte) {
	d, err := Decode(payload)
	if err != nil {
		logger.WarnKV(ctx, "Malformed detection dropped", "error", err)

		return
	}

	handled, err := s.processor.Process(ctx, d)

	switch {
	case err == nil:
		logger.InfoKV(ctx, "Detection handled", "label", d.Label, "confidence", d.Confidence, "alert_id", handled.ID)
	case errors.Is(err, ErrBelowThreshold), errors.Is(err, ErrUnknownKeyword),
		errors.Is(err, failure.ErrSessionNotListening):
		logger.DebugKV(ctx, "Detection ignored", "label", d.Label, "reason", err)
	default:
		logger.ErrorKV(ctx, "Detection failed", "label", d.Label, "error", err)
	}
}
