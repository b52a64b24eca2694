package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/contact"
)

// AlertContext is what a contact is told about the distress event.
type AlertContext struct {
	AlertID    string
	Label      string
	Confidence int
	DetectedAt time.Time
}

// Sender delivers a notification to a single contact.
// Implementations must honor ctx cancellation and be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, c *contact.Contact, ac AlertContext) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, c *contact.Contact, ac AlertContext) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, c *contact.Contact, ac AlertContext) error {
	return f(ctx, c, ac)
}

// DeliveryError is a classified per-contact delivery failure.
type DeliveryError struct {
	Kind alert.FailureKind
	Err  error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}

	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Unreachable wraps err as an unreachable delivery failure.
func Unreachable(err error) error {
	return &DeliveryError{Kind: alert.FailureUnreachable, Err: err}
}

// Rejected wraps err as a rejected delivery failure.
func Rejected(err error) error {
	return &DeliveryError{Kind: alert.FailureRejected, Err: err}
}

// Timeout wraps err as a timed out delivery failure.
func Timeout(err error) error {
	return &DeliveryError{Kind: alert.FailureTimeout, Err: err}
}

// Classify maps any send error to a failure kind. Unclassified errors count as unreachable,
// deadline errors as timeouts.
func Classify(err error) alert.FailureKind {
	var deliveryErr *DeliveryError

	switch {
	case err == nil:
		return alert.FailureNone
	case errors.As(err, &deliveryErr):
		return deliveryErr.Kind
	case errors.Is(err, context.DeadlineExceeded):
		return alert.FailureTimeout
	default:
		return alert.FailureUnreachable
	}
}
