package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/contact"
	"github.com/oshokin/echopulse/internal/domain/failure"
	"github.com/oshokin/echopulse/internal/logger"
	"github.com/oshokin/echopulse/internal/observability/metrics"
	"github.com/oshokin/echopulse/internal/service/ledger"
	"github.com/oshokin/echopulse/internal/service/notification"
)

// Detection outcomes reported to metrics.
const (
	OutcomeAlerted  = "alerted"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
)

// Roster supplies contacts in notification order.
type Roster interface {
	ListOrdered() []*contact.Contact
}

// Dispatcher notifies contacts sequentially.
type Dispatcher interface {
	Dispatch(ctx context.Context, ac notification.AlertContext, contacts []*contact.Contact) []alert.NotifiedContact
}

// Ledger records alerts.
type Ledger interface {
	Reserve(label string, confidence int) (ledger.Reservation, error)
	Commit(ctx context.Context, r ledger.Reservation, records []alert.NotifiedContact) (*alert.Alert, error)
	Get(id string) (*alert.Alert, error)
	RecordRetry(ctx context.Context, id string, records []alert.NotifiedContact) (*alert.Alert, error)
}

// Status is a snapshot of the session.
type Status struct {
	Listening bool
	// StartedAt is zero while stopped.
	StartedAt time.Time
	// Alerted counts detections that opened an alert.
	Alerted int
	// Ignored counts detections refused while stopped.
	Ignored int
}

// Session is the monitoring on/off switch and the detection entry point.
type Session struct {
	roster     Roster
	dispatcher Dispatcher
	ledger     Ledger
	metrics    *metrics.Metrics
	now        func() time.Time
	// retrying holds alerts with a retry round in flight.
	retrying  map[string]struct{}
	listening bool
	startedAt time.Time
	alerted   int
	ignored   int
	mu        sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithMetrics counts detection outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// New creates a stopped session.
func New(roster Roster, dispatcher Dispatcher, alerts Ledger, opts ...Option) *Session {
	s := &Session{
		roster:     roster,
		dispatcher: dispatcher,
		ledger:     alerts,
		now:        time.Now,
		retrying:   make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start turns listening on. Starting a listening session is a no-op.
func (s *Session) Start(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.listening {
		s.listening = true
		s.startedAt = s.now()

		logger.Info(ctx, "Monitoring started")
	}

	return s.statusLocked()
}

// Stop turns listening off. Alerts already opened are unaffected.
func (s *Session) Stop(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening {
		s.listening = false
		s.startedAt = time.Time{}

		logger.Info(ctx, "Monitoring stopped")
	}

	return s.statusLocked()
}

// IsListening reports whether detections are accepted.
func (s *Session) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listening
}

// Status returns the current session snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.statusLocked()
}

// HandleDetection notifies the roster in order and opens an alert with the outcomes.
// It fails with failure.ErrSessionNotListening while stopped, without notifying anyone.
// Cancellation of ctx does not cut the notification sequence short; every
// contact is bounded by the dispatcher's own delivery timeout.
func (s *Session) HandleDetection(ctx context.Context, label string, confidence int) (*alert.Alert, error) {
	label = strings.TrimSpace(label)

	if err := validateDetection(label, confidence); err != nil {
		s.metrics.Detection(OutcomeRejected)

		return nil, err
	}

	s.mu.Lock()

	if !s.listening {
		s.ignored++
		s.mu.Unlock()

		s.metrics.Detection(OutcomeIgnored)
		logger.DebugKV(ctx, "Detection ignored while not listening", "label", label, "confidence", confidence)

		return nil, fmt.Errorf("%w: detection %q ignored", failure.ErrSessionNotListening, label)
	}

	s.mu.Unlock()

	// Nobody is notified unless the alert can be recorded.
	reservation, err := s.ledger.Reserve(label, confidence)
	if err != nil {
		s.metrics.Detection(OutcomeRejected)

		return nil, fmt.Errorf("open alert: %w", err)
	}

	detectedAt := s.now()
	contacts := s.roster.ListOrdered()

	records := s.dispatcher.Dispatch(context.WithoutCancel(ctx), notification.AlertContext{
		AlertID:    reservation.ID,
		Label:      label,
		Confidence: confidence,
		DetectedAt: detectedAt,
	}, contacts)

	opened, err := s.ledger.Commit(ctx, reservation, records)
	if err != nil {
		return nil, fmt.Errorf("open alert: %w", err)
	}

	s.mu.Lock()
	s.alerted++
	s.mu.Unlock()

	s.metrics.Detection(OutcomeAlerted)

	if opened.NotificationFailed {
		logger.WarnKV(ctx, "No contact could be notified", "alert_id", opened.ID, "contacts", len(contacts))
	}

	return opened, nil
}

// RetryNotification re-notifies the current roster about an active alert.
// Only one retry round per alert runs at a time.
func (s *Session) RetryNotification(ctx context.Context, alertID string) (*alert.Alert, error) {
	current, err := s.ledger.Get(alertID)
	if err != nil {
		return nil, err
	}

	if current.IsResolved() {
		return nil, fmt.Errorf("%w: alert %q is already resolved", failure.ErrValidation, alertID)
	}

	s.mu.Lock()

	if _, busy := s.retrying[alertID]; busy {
		s.mu.Unlock()

		return nil, fmt.Errorf("%w: alert %q is already being retried", failure.ErrValidation, alertID)
	}

	s.retrying[alertID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.retrying, alertID)
		s.mu.Unlock()
	}()

	records := s.dispatcher.Dispatch(context.WithoutCancel(ctx), notification.AlertContext{
		AlertID:    current.ID,
		Label:      current.Label,
		Confidence: current.Confidence,
		DetectedAt: current.CreatedAt,
	}, s.roster.ListOrdered())

	return s.ledger.RecordRetry(ctx, alertID, records)
}

func (s *Session) statusLocked() Status {
	return Status{
		Listening: s.listening,
		StartedAt: s.startedAt,
		Alerted:   s.alerted,
		Ignored:   s.ignored,
	}
}

func validateDetection(label string, confidence int) error {
	if label == "" {
		return fmt.Errorf("%w: detected label is required", failure.ErrValidation)
	}

	if confidence < 0 || confidence > ledger.MaxConfidence {
		return fmt.Errorf("%w: confidence must be within 0..%d, got %d",
			failure.ErrValidation, ledger.MaxConfidence, confidence)
	}

	return nil
}
