package ledger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/failure"
	"github.com/oshokin/echopulse/internal/logger"
	"github.com/oshokin/echopulse/internal/observability/metrics"
)

const (
	// MaxConfidence is the upper bound of the confidence score.
	MaxConfidence = 100

	// recentLimit is the number of alerts the dashboard shows.
	recentLimit = 5

	dayLayout = "2006-01-02"
)

// ErrClosed is returned when opening an alert after Close.
var ErrClosed = errors.New("alert ledger is closed")

// TimeoutProvider supplies the current auto-resolve timeout.
type TimeoutProvider interface {
	AutoResolveTimeout() time.Duration
}

// TimeoutFunc adapts a function to the TimeoutProvider interface.
type TimeoutFunc func() time.Duration

// AutoResolveTimeout calls f.
func (f TimeoutFunc) AutoResolveTimeout() time.Duration {
	return f()
}

// entry is the ledger-private state of one alert.
type entry struct {
	alert *alert.Alert
	// timer is the pending auto-resolve timer, nil once resolved.
	timer *time.Timer
	// generation invalidates timers armed before the last resolve or refresh.
	generation uint64
	// seq orders alerts opened within the same clock tick.
	seq uint64
}

// Stats summarizes the ledger contents.
type Stats struct {
	Total              int
	Active             int
	ResolvedManual     int
	ResolvedTimeout    int
	NotificationFailed int
}

// DayGroup is a set of alerts created on the same local calendar day.
type DayGroup struct {
	// Date is formatted as YYYY-MM-DD.
	Date   string
	Alerts []*alert.Alert
}

// Ledger is the single owner of all alerts.
type Ledger struct {
	// ctx carries the logger used by timer callbacks.
	ctx      context.Context //nolint:containedctx // Timer callbacks have no caller context.
	timeouts TimeoutProvider
	metrics  *metrics.Metrics
	newID    func() string
	now      func() time.Time
	entries  map[string]*entry
	seq      uint64
	closed   bool
	mu       sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMetrics records alert lifecycle metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithIDGenerator overrides the UUID generator, mostly for tests.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// New creates an empty ledger reading auto-resolve timeouts from timeouts.
func New(ctx context.Context, timeouts TimeoutProvider, opts ...Option) *Ledger {
	l := &Ledger{
		ctx:      logger.WithName(ctx, "ledger"),
		timeouts: timeouts,
		newID:    uuid.NewString,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Reservation is an alert ID and auto-resolve timeout taken before contacts are notified.
type Reservation struct {
	ID         string
	Label      string
	Confidence int
	// AutoResolveAfter is read from the settings once, at reservation time.
	AutoResolveAfter time.Duration
}

// Reserve validates a detection and fixes the ID and timeout of the alert it will open.
// Failures here happen before anybody is notified.
func (l *Ledger) Reserve(label string, confidence int) (Reservation, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Reservation{}, fmt.Errorf("%w: detected label is required", failure.ErrValidation)
	}

	if confidence < 0 || confidence > MaxConfidence {
		return Reservation{}, fmt.Errorf("%w: confidence must be within 0..%d, got %d",
			failure.ErrValidation, MaxConfidence, confidence)
	}

	timeout := l.timeouts.AutoResolveTimeout()
	if timeout <= 0 {
		return Reservation{}, fmt.Errorf("%w: auto-resolve timeout must be positive, got %s",
			failure.ErrValidation, timeout)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Reservation{}, ErrClosed
	}

	return Reservation{
		ID:               l.newID(),
		Label:            label,
		Confidence:       confidence,
		AutoResolveAfter: timeout,
	}, nil
}

// Open creates an Active alert for the dispatched records and arms its auto-resolve timer.
// The timeout is read once here; later settings changes do not affect this alert.
func (l *Ledger) Open(
	ctx context.Context,
	label string,
	confidence int,
	records []alert.NotifiedContact,
) (*alert.Alert, error) {
	r, err := l.Reserve(label, confidence)
	if err != nil {
		return nil, err
	}

	return l.Commit(ctx, r, records)
}

// Commit opens the reserved alert with the dispatched records.
func (l *Ledger) Commit(ctx context.Context, r Reservation, records []alert.NotifiedContact) (*alert.Alert, error) {
	if r.ID == "" || r.AutoResolveAfter <= 0 {
		return nil, fmt.Errorf("%w: alert was not reserved", failure.ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}

	if _, exists := l.entries[r.ID]; exists {
		return nil, fmt.Errorf("%w: alert %q is already open", failure.ErrValidation, r.ID)
	}

	l.seq++

	a := &alert.Alert{
		ID:                 r.ID,
		CreatedAt:          l.now(),
		Label:              r.Label,
		Confidence:         r.Confidence,
		State:              alert.StateActive,
		NotifiedContacts:   slices.Clone(records),
		NotificationFailed: alert.AllFailed(records),
		AutoResolveAfter:   r.AutoResolveAfter,
	}

	e := &entry{
		alert: a,
		seq:   l.seq,
	}

	l.entries[a.ID] = e
	l.armLocked(e)
	l.metrics.AlertOpened(a.NotificationFailed)

	logger.InfoKV(ctx, "Alert opened",
		"alert_id", a.ID,
		"label", a.Label,
		"confidence", a.Confidence,
		"notified", len(a.NotifiedContacts),
		"notification_failed", a.NotificationFailed,
		"auto_resolve_after", a.AutoResolveAfter.String(),
	)

	return a.Clone(), nil
}

// Resolve marks the alert resolved by the user and cancels its timer.
// Resolving an already resolved alert returns it unchanged.
func (l *Ledger) Resolve(ctx context.Context, id string) (*alert.Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: alert %q", failure.ErrNotFound, id)
	}

	if !e.alert.IsResolved() {
		l.resolveLocked(ctx, e, alert.CauseManual)
	}

	return e.alert.Clone(), nil
}

// Refresh re-arms the auto-resolve timer of an active alert with its own timeout,
// as if the distress sound had just been heard again.
func (l *Ledger) Refresh(ctx context.Context, id string) (*alert.Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: alert %q", failure.ErrNotFound, id)
	}

	if e.alert.IsResolved() {
		return nil, fmt.Errorf("%w: alert %q is already resolved", failure.ErrValidation, id)
	}

	l.armLocked(e)

	logger.DebugKV(ctx, "Alert auto-resolve timer refreshed", "alert_id", id)

	return e.alert.Clone(), nil
}

// RecordRetry appends a re-notification round to an active alert.
// The first dispatch stays untouched; the failure flag clears once any delivery succeeds.
func (l *Ledger) RecordRetry(ctx context.Context, id string, records []alert.NotifiedContact) (*alert.Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: alert %q", failure.ErrNotFound, id)
	}

	if e.alert.IsResolved() {
		return nil, fmt.Errorf("%w: alert %q is already resolved", failure.ErrValidation, id)
	}

	e.alert.Retries = append(e.alert.Retries, alert.Retry{
		At:       l.now(),
		Contacts: slices.Clone(records),
	})
	e.alert.NotificationFailed = e.alert.NotificationFailed && alert.AllFailed(records)

	logger.InfoKV(ctx, "Alert notification retried",
		"alert_id", id,
		"attempt", len(e.alert.Retries),
		"notification_failed", e.alert.NotificationFailed,
	)

	return e.alert.Clone(), nil
}

// Get returns a copy of the alert.
func (l *Ledger) Get(id string) (*alert.Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: alert %q", failure.ErrNotFound, id)
	}

	return e.alert.Clone(), nil
}

// List returns copies of matching alerts, newest first.
func (l *Ledger) List(filter Filter) []*alert.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := make([]*entry, 0, len(l.entries))

	for _, e := range l.entries {
		if filter.Matches(e.alert) {
			matched = append(matched, e)
		}
	}

	slices.SortFunc(matched, func(a, b *entry) int {
		if c := b.alert.CreatedAt.Compare(a.alert.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(b.seq, a.seq)
	})

	result := make([]*alert.Alert, 0, len(matched))
	for _, e := range matched {
		result = append(result, e.alert.Clone())
	}

	return result
}

// Recent returns up to n newest alerts. Non-positive n uses the dashboard default of five.
func (l *Ledger) Recent(n int) []*alert.Alert {
	if n <= 0 {
		n = recentLimit
	}

	all := l.List(Filter{State: FilterAll})
	if len(all) > n {
		all = all[:n]
	}

	return all
}

// History groups matching alerts by the local calendar day they were created, newest day first.
func (l *Ledger) History(filter Filter) []DayGroup {
	var groups []DayGroup

	for _, a := range l.List(filter) {
		day := a.CreatedAt.Local().Format(dayLayout)

		if len(groups) == 0 || groups[len(groups)-1].Date != day {
			groups = append(groups, DayGroup{Date: day})
		}

		last := &groups[len(groups)-1]
		last.Alerts = append(last.Alerts, a)
	}

	return groups
}

// Stats returns alert counters.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var stats Stats

	for _, e := range l.entries {
		stats.Total++

		if e.alert.NotificationFailed {
			stats.NotificationFailed++
		}

		switch e.alert.ResolveCause {
		case alert.CauseManual:
			stats.ResolvedManual++
		case alert.CauseTimeout:
			stats.ResolvedTimeout++
		case alert.CauseNone:
			stats.Active++
		}
	}

	return stats
}

// Close stops all pending timers. Alerts stay readable; no new alerts can be opened.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true

	for _, e := range l.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}

		e.generation++
	}
}

// armLocked (re)starts the auto-resolve timer of e. Callers must hold the lock.
func (l *Ledger) armLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}

	e.generation++

	var (
		id         = e.alert.ID
		generation = e.generation
	)

	e.timer = time.AfterFunc(e.alert.AutoResolveAfter, func() {
		l.expire(id, generation)
	})
}

// expire is the timer callback. A stale generation means the alert was
// resolved or refreshed after this timer was armed.
func (l *Ledger) expire(id string, generation uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok || e.generation != generation || e.alert.IsResolved() {
		return
	}

	l.resolveLocked(l.ctx, e, alert.CauseTimeout)
}

// resolveLocked performs the single terminal transition. Callers must hold the lock.
func (l *Ledger) resolveLocked(ctx context.Context, e *entry, cause alert.Cause) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	e.generation++

	resolvedAt := l.now()
	e.alert.State = alert.StateResolved
	e.alert.ResolvedAt = &resolvedAt
	e.alert.ResolveCause = cause

	l.metrics.AlertResolved(string(cause))

	logger.InfoKV(ctx, "Alert resolved", "alert_id", e.alert.ID, "cause", cause)
}
