package detection

import (
	"context"
	"fmt"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/echopulse/internal/config"
	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/failure"
	domain "github.com/oshokin/echopulse/internal/domain/settings"
)

// fakeEngine plays both the session and the ledger.
type fakeEngine struct {
	listening bool
	opened    []string
	refreshed []string
	// resolved alerts cannot be refreshed.
	resolved map[string]bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{listening: true, resolved: make(map[string]bool)}
}

func (f *fakeEngine) IsListening() bool {
	return f.listening
}

func (f *fakeEngine) HandleDetection(_ context.Context, label string, confidence int) (*alert.Alert, error) {
	if !f.listening {
		return nil, failure.ErrSessionNotListening
	}

	id := fmt.Sprintf("alert-%d", len(f.opened)+1)
	f.opened = append(f.opened, id)

	return &alert.Alert{ID: id, Label: label, Confidence: confidence, State: alert.StateActive}, nil
}

func (f *fakeEngine) Refresh(_ context.Context, id string) (*alert.Alert, error) {
	if f.resolved[id] {
		return nil, failure.ErrValidation
	}

	f.refreshed = append(f.refreshed, id)

	return &alert.Alert{ID: id, State: alert.StateActive}, nil
}

type staticSettings domain.Settings

func (s staticSettings) Get() domain.Settings {
	return domain.Settings(s)
}

func withSensitivity(sensitivity domain.Sensitivity) staticSettings {
	s := domain.Default()
	s.Sensitivity = sensitivity

	return staticSettings(s)
}

// TestDecode parses payloads and rejects malformed ones.
func TestDecode(t *testing.T) {
	t.Parallel()

	d, err := Decode([]byte(`{"label": " Call for help ", "confidence": 88}`))
	require.NoError(t, err)
	require.Equal(t, Detection{Label: "Call for help", Confidence: 88, Kind: KindSound}, d)

	d, err = Decode([]byte(`{"label": "HELP", "confidence": 70, "kind": "Keyword"}`))
	require.NoError(t, err)
	require.Equal(t, KindKeyword, d.Kind)

	for _, payload := range []string{
		`not json`,
		`{"confidence": 88}`,
		`{"label": "Call for help"}`,
		`{"label": "Call for help", "confidence": 88, "kind": "video"}`,
		`{"label": "Call for help", "confidence": 88.7}`,
		`{"label": "Call for help", "confidence": 100.4}`,
		`{"label": "Call for help", "confidence": "88"}`,
	} {
		_, err = Decode([]byte(payload))
		require.ErrorIs(t, err, failure.ErrValidation, payload)
	}
}

// TestProcess_SensitivityThreshold drops detections under the threshold.
func TestProcess_SensitivityThreshold(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for _, tc := range []struct {
		sensitivity domain.Sensitivity
		confidence  int
		admitted    bool
	}{
		{domain.SensitivityLow, 89, false},
		{domain.SensitivityLow, 90, true},
		{domain.SensitivityMedium, 74, false},
		{domain.SensitivityMedium, 75, true},
		{domain.SensitivityHigh, 59, false},
		{domain.SensitivityHigh, 60, true},
	} {
		engine := newFakeEngine()
		p := NewProcessor(engine, engine, withSensitivity(tc.sensitivity), 0)

		_, err := p.Process(ctx, Detection{Label: "Fall detected", Confidence: tc.confidence, Kind: KindSound})
		if tc.admitted {
			require.NoError(t, err)
			require.Len(t, engine.opened, 1)
		} else {
			require.ErrorIs(t, err, ErrBelowThreshold)
			require.Empty(t, engine.opened)
		}
	}
}

// TestProcess_KeywordList admits only listed keywords.
func TestProcess_KeywordList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newFakeEngine()
	p := NewProcessor(engine, engine, withSensitivity(domain.SensitivityHigh), 0)

	_, err := p.Process(ctx, Detection{Label: "Emergency", Confidence: 80, Kind: KindKeyword})
	require.NoError(t, err)

	_, err = p.Process(ctx, Detection{Label: "pizza", Confidence: 80, Kind: KindKeyword})
	require.ErrorIs(t, err, ErrUnknownKeyword)

	// Sounds are not matched against keywords.
	_, err = p.Process(ctx, Detection{Label: "Glass breaking", Confidence: 80, Kind: KindSound})
	require.NoError(t, err)

	require.Len(t, engine.opened, 2)
}

// TestProcess_DuplicateRefreshesAlert extends the alert instead of opening another one.
func TestProcess_DuplicateRefreshesAlert(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		engine := newFakeEngine()
		p := NewProcessor(engine, engine, withSensitivity(domain.SensitivityMedium), 10*time.Second)

		first, err := p.Process(ctx, Detection{Label: "Call for help", Confidence: 80})
		require.NoError(t, err)

		time.Sleep(5 * time.Second)

		second, err := p.Process(ctx, Detection{Label: "CALL FOR HELP", Confidence: 85})
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
		require.Equal(t, []string{first.ID}, engine.refreshed)

		// The window restarts with every refresh.
		time.Sleep(8 * time.Second)

		_, err = p.Process(ctx, Detection{Label: "Call for help", Confidence: 85})
		require.NoError(t, err)
		require.Len(t, engine.opened, 1)

		time.Sleep(11 * time.Second)

		third, err := p.Process(ctx, Detection{Label: "Call for help", Confidence: 85})
		require.NoError(t, err)
		require.NotEqual(t, first.ID, third.ID)
		require.Len(t, engine.opened, 2)
	})
}

// TestProcess_ResolvedAlertOpensNewOne falls back to a new alert.
func TestProcess_ResolvedAlertOpensNewOne(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newFakeEngine()
	p := NewProcessor(engine, engine, withSensitivity(domain.SensitivityMedium), time.Minute)

	first, err := p.Process(ctx, Detection{Label: "Call for help", Confidence: 80})
	require.NoError(t, err)

	engine.resolved[first.ID] = true

	second, err := p.Process(ctx, Detection{Label: "Call for help", Confidence: 80})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.Empty(t, engine.refreshed)
}

// TestProcess_StoppedSessionDoesNotRefresh refuses duplicates while stopped.
func TestProcess_StoppedSessionDoesNotRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newFakeEngine()
	p := NewProcessor(engine, engine, withSensitivity(domain.SensitivityMedium), time.Minute)

	_, err := p.Process(ctx, Detection{Label: "Call for help", Confidence: 80})
	require.NoError(t, err)

	engine.listening = false

	_, err = p.Process(ctx, Detection{Label: "Call for help", Confidence: 80})
	require.ErrorIs(t, err, failure.ErrSessionNotListening)
	require.Empty(t, engine.refreshed)
}

// TestHandlePayload tolerates malformed and filtered messages.
func TestHandlePayload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newFakeEngine()
	s := NewSubscriber(config.MQTT{Topic: config.DefaultMQTTTopic}, NewProcessor(engine, engine, withSensitivity(domain.SensitivityLow), 0))

	s.HandlePayload(ctx, []byte(`garbage`))
	s.HandlePayload(ctx, []byte(`{"label": "Call for help", "confidence": 50}`))
	require.Empty(t, engine.opened)

	s.HandlePayload(ctx, []byte(`{"label": "Call for help", "confidence": 95}`))
	require.Equal(t, []string{"alert-1"}, engine.opened)
}
