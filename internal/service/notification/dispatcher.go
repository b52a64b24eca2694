package notification

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/contact"
	"github.com/oshokin/echopulse/internal/logger"
	"github.com/oshokin/echopulse/internal/observability/metrics"
)

// DefaultDeliveryTimeout bounds a single contact delivery attempt.
const DefaultDeliveryTimeout = 5 * time.Second

// Dispatcher sends an alert to contacts sequentially, in the given order.
type Dispatcher struct {
	// sender performs the actual delivery.
	sender Sender
	// timeout bounds every attempt.
	timeout time.Duration
	// metrics is optional.
	metrics *metrics.Metrics
	// now returns the attempt timestamp.
	now func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDeliveryTimeout sets the per-contact delivery timeout.
func WithDeliveryTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithMetrics records delivery outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher delivering through sender.
func NewDispatcher(sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		timeout: DefaultDeliveryTimeout,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch attempts every contact in order and returns one record per attempt.
// Failures are recorded and never stop the sequence.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	ac AlertContext,
	contacts []*contact.Contact,
) []alert.NotifiedContact {
	records := make([]alert.NotifiedContact, 0, len(contacts))

	for position, c := range contacts {
		startedAt := d.now()
		err := d.attempt(ctx, c, ac)
		took := d.now().Sub(startedAt)

		record := alert.NotifiedContact{
			Contact:     c.Snapshot(),
			Status:      alert.DeliveryDelivered,
			AttemptedAt: startedAt,
		}

		if err != nil {
			record.Status = alert.DeliveryFailed
			record.FailureKind = Classify(err)
			record.Reason = err.Error()

			logger.WarnKV(ctx, "Contact delivery failed",
				"alert_id", ac.AlertID,
				"contact_id", c.ID,
				"position", position,
				"kind", record.FailureKind,
				"error", err,
			)
		} else {
			logger.DebugKV(ctx, "Contact notified", "alert_id", ac.AlertID, "contact_id", c.ID, "position", position)
		}

		d.metrics.ObserveDelivery(string(record.Status), string(record.FailureKind), took)

		records = append(records, record)
	}

	return records
}

// attempt runs one send bounded by the delivery timeout. It stops waiting for
// a sender that ignores its context once the deadline passes.
func (d *Dispatcher) attempt(ctx context.Context, c *contact.Contact, ac AlertContext) error {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- d.sender.Send(attemptCtx, c, ac)
	}()

	select {
	case err := <-done:
		if err != nil && Classify(err) == alert.FailureUnreachable &&
			errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			// The sender gave up because of our deadline.
			return Timeout(err)
		}

		return err
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return Timeout(attemptCtx.Err())
		}

		return Unreachable(attemptCtx.Err())
	}
}
