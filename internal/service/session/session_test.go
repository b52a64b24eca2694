package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/contact"
	"github.com/oshokin/echopulse/internal/domain/failure"
	"github.com/oshokin/echopulse/internal/observability/metrics"
	"github.com/oshokin/echopulse/internal/service/ledger"
	"github.com/oshokin/echopulse/internal/service/notification"
	"github.com/oshokin/echopulse/internal/service/roster"
)

var errTestUnreachable = errors.New("test unreachable")

// recordingSender remembers who was called and fails for the configured names.
type recordingSender struct {
	failing  map[string]bool
	calls    []string
	alertIDs []string
	mu       sync.Mutex
}

func (r *recordingSender) Send(_ context.Context, c *contact.Contact, ac notification.AlertContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, c.Name)
	r.alertIDs = append(r.alertIDs, ac.AlertID)

	if r.failing[c.Name] {
		return notification.Unreachable(errTestUnreachable)
	}

	return nil
}

func (r *recordingSender) called() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

type fixture struct {
	session *Session
	roster  *roster.Roster
	ledger  *ledger.Ledger
	sender  *recordingSender
	metrics *metrics.Metrics
}

// newFixture builds a session over roster A, B (primary), C.
func newFixture(t *testing.T, failing ...string) *fixture {
	t.Helper()

	ctx := context.Background()

	r, err := roster.New(ctx)
	require.NoError(t, err)

	for _, name := range []string{"A", "B", "C"} {
		_, err = r.Add(ctx, name, "+1555000"+name, "family", false)
		require.NoError(t, err)
	}

	b := r.ListOrdered()[1]
	require.Equal(t, "B", b.Name)
	require.NoError(t, r.SetPrimary(ctx, b.ID))

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	sender := &recordingSender{failing: make(map[string]bool)}
	for _, name := range failing {
		sender.failing[name] = true
	}

	l := ledger.New(ctx, ledger.TimeoutFunc(func() time.Duration { return time.Hour }))
	t.Cleanup(l.Close)

	return &fixture{
		session: New(r, notification.NewDispatcher(sender), l, WithMetrics(m)),
		roster:  r,
		ledger:  l,
		sender:  sender,
		metrics: m,
	}
}

func names(records []alert.NotifiedContact) []string {
	result := make([]string, 0, len(records))
	for _, r := range records {
		result = append(result, r.Contact.Name)
	}

	return result
}

// TestHandleDetection_NotListening refuses detections without notifying anyone.
func TestHandleDetection_NotListening(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	opened, err := f.session.HandleDetection(context.Background(), "Call for help", 88)
	require.ErrorIs(t, err, failure.ErrSessionNotListening)
	require.Nil(t, opened)
	require.Empty(t, f.sender.called())
	require.Empty(t, f.ledger.List(ledger.Filter{}))
	require.Equal(t, 1, f.session.Status().Ignored)
	require.InDelta(t, 1, testutil.ToFloat64(f.metrics.DetectionsTotal.WithLabelValues(OutcomeIgnored)), 0)
}

// TestHandleDetection_NotifiesPrimaryFirst dispatches in roster order.
func TestHandleDetection_NotifiesPrimaryFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.session.Start(ctx)

	opened, err := f.session.HandleDetection(ctx, "Call for help", 88)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A", "C"}, f.sender.called())
	require.Equal(t, []string{"B", "A", "C"}, names(opened.NotifiedContacts))
	require.Equal(t, alert.StateActive, opened.State)
	require.False(t, opened.NotificationFailed)
	require.Equal(t, "Call for help", opened.Label)
	require.Equal(t, 88, opened.Confidence)
	require.Equal(t, 1, f.session.Status().Alerted)

	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()

	require.Equal(t, []string{opened.ID, opened.ID, opened.ID}, f.sender.alertIDs)
}

// TestHandleDetection_PartialFailure keeps going after a failed contact.
func TestHandleDetection_PartialFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, "A")
	f.session.Start(ctx)

	opened, err := f.session.HandleDetection(ctx, "Fall detected", 95)
	require.NoError(t, err)
	require.Len(t, opened.NotifiedContacts, 3)
	require.Equal(t, alert.DeliveryDelivered, opened.NotifiedContacts[0].Status)
	require.Equal(t, alert.DeliveryFailed, opened.NotifiedContacts[1].Status)
	require.Equal(t, alert.FailureUnreachable, opened.NotifiedContacts[1].FailureKind)
	require.Equal(t, alert.DeliveryDelivered, opened.NotifiedContacts[2].Status)
	require.False(t, opened.NotificationFailed)
}

// TestHandleDetection_TotalFailure still opens an alert, flagged as failed.
func TestHandleDetection_TotalFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, "A", "B", "C")
	f.session.Start(ctx)

	opened, err := f.session.HandleDetection(ctx, "Fall detected", 95)
	require.NoError(t, err)
	require.Equal(t, alert.StateActive, opened.State)
	require.True(t, opened.NotificationFailed)
	require.Len(t, f.ledger.List(ledger.Filter{State: ledger.FilterActive}), 1)
}

// TestHandleDetection_EmptyRoster opens an alert nobody was told about.
func TestHandleDetection_EmptyRoster(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	r, err := roster.New(ctx)
	require.NoError(t, err)

	l := ledger.New(ctx, ledger.TimeoutFunc(func() time.Duration { return time.Hour }))
	defer l.Close()

	s := New(r, notification.NewDispatcher(notification.LogSender{}), l)
	s.Start(ctx)

	opened, err := s.HandleDetection(ctx, "Call for help", 80)
	require.NoError(t, err)
	require.Empty(t, opened.NotifiedContacts)
	require.True(t, opened.NotificationFailed)
}

// TestHandleDetection_InvalidInput never reaches the dispatcher.
func TestHandleDetection_InvalidInput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.session.Start(ctx)

	_, err := f.session.HandleDetection(ctx, "  ", 80)
	require.ErrorIs(t, err, failure.ErrValidation)

	_, err = f.session.HandleDetection(ctx, "Call for help", 120)
	require.ErrorIs(t, err, failure.ErrValidation)

	require.Empty(t, f.sender.called())
	require.InDelta(t, 2, testutil.ToFloat64(f.metrics.DetectionsTotal.WithLabelValues(OutcomeRejected)), 0)
}

// TestStartStop toggles listening idempotently.
func TestStartStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	require.False(t, f.session.IsListening())

	started := f.session.Start(ctx)
	require.True(t, started.Listening)
	require.False(t, started.StartedAt.IsZero())
	require.Equal(t, started.StartedAt, f.session.Start(ctx).StartedAt)

	stopped := f.session.Stop(ctx)
	require.False(t, stopped.Listening)
	require.True(t, stopped.StartedAt.IsZero())
	require.False(t, f.session.IsListening())

	_, err := f.session.HandleDetection(ctx, "Call for help", 80)
	require.ErrorIs(t, err, failure.ErrSessionNotListening)
}

// TestRetryNotification re-dispatches to the current roster.
func TestRetryNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, "A", "B", "C")
	f.session.Start(ctx)

	opened, err := f.session.HandleDetection(ctx, "Call for help", 90)
	require.NoError(t, err)
	require.True(t, opened.NotificationFailed)

	f.sender.mu.Lock()
	delete(f.sender.failing, "C")
	f.sender.mu.Unlock()

	retried, err := f.session.RetryNotification(ctx, opened.ID)
	require.NoError(t, err)
	require.False(t, retried.NotificationFailed)
	require.Len(t, retried.Retries, 1)
	require.Equal(t, []string{"B", "A", "C"}, names(retried.Retries[0].Contacts))
	require.Equal(t, names(opened.NotifiedContacts), names(retried.NotifiedContacts))

	_, err = f.ledger.Resolve(ctx, opened.ID)
	require.NoError(t, err)

	_, err = f.session.RetryNotification(ctx, opened.ID)
	require.ErrorIs(t, err, failure.ErrValidation)

	_, err = f.session.RetryNotification(ctx, "missing")
	require.ErrorIs(t, err, failure.ErrNotFound)
}

// stallingSender never answers for the contacts in stall and honors the context otherwise.
type stallingSender struct {
	stall   map[string]bool
	reached []string
	mu      sync.Mutex
}

func (s *stallingSender) Send(ctx context.Context, c *contact.Contact, _ notification.AlertContext) error {
	if s.stall[c.Name] {
		<-ctx.Done()

		return ctx.Err()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.reached = append(s.reached, c.Name)
	s.mu.Unlock()

	return nil
}

// TestHandleDetection_CallerDeadlineDoesNotStarveLaterContacts keeps notifying
// after a slow primary used up the caller's whole deadline.
func TestHandleDetection_CallerDeadlineDoesNotStarveLaterContacts(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()

		r, err := roster.New(ctx)
		require.NoError(t, err)

		for _, name := range []string{"B", "A", "C"} {
			_, err = r.Add(ctx, name, "+1555000"+name, "", false)
			require.NoError(t, err)
		}

		l := ledger.New(ctx, ledger.TimeoutFunc(func() time.Duration { return time.Hour }))
		defer l.Close()

		sender := &stallingSender{stall: map[string]bool{"B": true}}
		s := New(r, notification.NewDispatcher(sender), l)
		s.Start(ctx)

		callCtx, cancel := context.WithTimeout(ctx, notification.DefaultDeliveryTimeout)
		defer cancel()

		opened, err := s.HandleDetection(callCtx, "Call for help", 88)
		require.NoError(t, err)
		require.Equal(t, []string{"B", "A", "C"}, names(opened.NotifiedContacts))
		require.Equal(t, alert.FailureTimeout, opened.NotifiedContacts[0].FailureKind)
		require.True(t, opened.NotifiedContacts[1].Delivered())
		require.True(t, opened.NotifiedContacts[2].Delivered())
		require.False(t, opened.NotificationFailed)
		require.Equal(t, []string{"A", "C"}, sender.reached)
	})
}

// TestHandleDetection_UnrecordableAlertNotifiesNobody refuses before dispatch
// when the ledger cannot open the alert.
func TestHandleDetection_UnrecordableAlertNotifiesNobody(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("overflowed timeout", func(t *testing.T) {
		t.Parallel()

		r, err := roster.New(ctx)
		require.NoError(t, err)

		_, err = r.Add(ctx, "Jane", "+15550001", "", false)
		require.NoError(t, err)

		minutes := 200_000_000
		l := ledger.New(ctx, ledger.TimeoutFunc(func() time.Duration { return time.Duration(minutes) * time.Minute }))
		defer l.Close()

		sender := &recordingSender{}
		s := New(r, notification.NewDispatcher(sender), l)
		s.Start(ctx)

		opened, err := s.HandleDetection(ctx, "Call for help", 88)
		require.ErrorIs(t, err, failure.ErrValidation)
		require.Nil(t, opened)
		require.Empty(t, sender.called())
		require.Empty(t, l.List(ledger.Filter{}))
		require.Zero(t, s.Status().Alerted)
	})

	t.Run("closed ledger", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.session.Start(ctx)
		f.ledger.Close()

		_, err := f.session.HandleDetection(ctx, "Call for help", 88)
		require.ErrorIs(t, err, ledger.ErrClosed)
		require.Empty(t, f.sender.called())
	})
}
