package detection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/echopulse/internal/api/wire"
	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/failure"
	domain "github.com/oshokin/echopulse/internal/domain/settings"
	"github.com/oshokin/echopulse/internal/logger"
	"github.com/oshokin/echopulse/internal/observability/metrics"
)

// Kind tells sound detections from keyword detections.
type Kind string

const (
	// KindSound is a classified distress sound. It is the default.
	KindSound Kind = "sound"
	// KindKeyword is a spoken keyword.
	KindKeyword Kind = "keyword"
)

// Metric outcomes of filtered detections.
const (
	outcomeFiltered  = "filtered"
	outcomeRefreshed = "refreshed"
)

var (
	// ErrBelowThreshold is returned when the confidence is under the sensitivity threshold.
	ErrBelowThreshold = errors.New("confidence below sensitivity threshold")
	// ErrUnknownKeyword is returned for keyword detections outside the keyword list.
	ErrUnknownKeyword = errors.New("keyword is not in the detection list")
)

// Detection is one classified event published by a detection source.
type Detection struct {
	Label      string
	Confidence int
	Kind       Kind
}

// Decode parses a JSON payload such as {"label": "Call for help", "confidence": 88, "kind": "sound"}.
func Decode(payload []byte) (Detection, error) {
	var message structpb.Struct
	if err := protojson.Unmarshal(payload, &message); err != nil {
		return Detection{}, fmt.Errorf("%w: decode detection: %w", failure.ErrValidation, err)
	}

	d := Detection{
		Label: strings.TrimSpace(wire.String(&message, "label")),
		Kind:  Kind(strings.ToLower(wire.String(&message, "kind"))),
	}

	switch d.Kind {
	case "":
		d.Kind = KindSound
	case KindSound, KindKeyword:
	default:
		return Detection{}, fmt.Errorf("%w: unknown detection kind %q", failure.ErrValidation, d.Kind)
	}

	if d.Label == "" {
		return Detection{}, fmt.Errorf("%w: detection label is required", failure.ErrValidation)
	}

	confidence, err := wire.RequiredInt(&message, "confidence")
	if err != nil {
		return Detection{}, fmt.Errorf("detection: %w", err)
	}

	d.Confidence = confidence

	return d, nil
}

// Sink opens alerts for admitted detections.
type Sink interface {
	IsListening() bool
	HandleDetection(ctx context.Context, label string, confidence int) (*alert.Alert, error)
}

// Refresher postpones the auto-resolution of an alert.
type Refresher interface {
	Refresh(ctx context.Context, id string) (*alert.Alert, error)
}

// SettingsSource supplies the sensitivity and keyword list.
type SettingsSource interface {
	Get() domain.Settings
}

// Processor filters detections and forwards them to the session.
type Processor struct {
	sink      Sink
	refresher Refresher
	settings  SettingsSource
	metrics   *metrics.Metrics
	// recent maps a lower-cased label to the ID of the alert it opened.
	recent *cache.Cache
}

// Option configures a Processor.
type Option func(*Processor)

// WithMetrics counts filtered and refreshed detections.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// NewProcessor creates a processor. A non-positive window disables de-duplication.
func NewProcessor(
	sink Sink,
	refresher Refresher,
	settings SettingsSource,
	window time.Duration,
	opts ...Option,
) *Processor {
	p := &Processor{
		sink:      sink,
		refresher: refresher,
		settings:  settings,
	}

	// No janitor goroutine: expired labels are swept on each Process call.
	if window > 0 {
		p.recent = cache.New(window, 0)
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Process admits d and opens an alert, or refreshes the alert the same label
// opened within the de-duplication window.
func (p *Processor) Process(ctx context.Context, d Detection) (*alert.Alert, error) {
	if err := p.admit(d); err != nil {
		p.metrics.Detection(outcomeFiltered)

		return nil, err
	}

	key := strings.ToLower(d.Label)

	// A stopped session refuses the detection below, refresh included.
	if !p.sink.IsListening() {
		return p.sink.HandleDetection(ctx, d.Label, d.Confidence)
	}

	if refreshed, ok := p.refreshRecent(ctx, key); ok {
		p.metrics.Detection(outcomeRefreshed)

		return refreshed, nil
	}

	opened, err := p.sink.HandleDetection(ctx, d.Label, d.Confidence)
	if err != nil {
		return nil, err
	}

	if p.recent != nil {
		p.recent.SetDefault(key, opened.ID)
	}

	return opened, nil
}

// admit applies the sensitivity threshold and the keyword list.
func (p *Processor) admit(d Detection) error {
	current := p.settings.Get()

	if threshold := current.Sensitivity.MinConfidence(); d.Confidence < threshold {
		return fmt.Errorf("%w: %d < %d at %s sensitivity", ErrBelowThreshold, d.Confidence, threshold, current.Sensitivity)
	}

	if d.Kind == KindKeyword && !current.HasKeyword(d.Label) {
		return fmt.Errorf("%w: %q", ErrUnknownKeyword, d.Label)
	}

	return nil
}

// refreshRecent refreshes the alert opened for key, if it is still active.
func (p *Processor) refreshRecent(ctx context.Context, key string) (*alert.Alert, bool) {
	if p.recent == nil {
		return nil, false
	}

	p.recent.DeleteExpired()

	cached, found := p.recent.Get(key)
	if !found {
		return nil, false
	}

	id, _ := cached.(string)

	refreshed, err := p.refresher.Refresh(ctx, id)
	if err != nil {
		// Resolved in the meantime: the next detection opens a new alert.
		p.recent.Delete(key)

		logger.DebugKV(ctx, "Recent alert cannot be refreshed", "alert_id", id, "error", err)

		return nil, false
	}

	p.recent.SetDefault(key, id)

	return refreshed, true
}
