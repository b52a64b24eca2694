package alert

import (
	"slices"
	"time"

	"github.com/oshokin/echopulse/internal/domain/contact"
)

// State is the lifecycle state of an alert.
type State string

const (
	// StateActive is the state of a freshly opened alert.
	StateActive State = "active"
	// StateResolved is the terminal state.
	StateResolved State = "resolved"
)

// Cause tells what resolved an alert.
type Cause string

const (
	// CauseNone is used while the alert is still active.
	CauseNone Cause = ""
	// CauseManual marks an alert resolved by an explicit user action.
	CauseManual Cause = "manual"
	// CauseTimeout marks an alert resolved by the auto-resolve timer.
	CauseTimeout Cause = "timeout"
)

// DeliveryStatus is the outcome of a single notification attempt.
type DeliveryStatus string

const (
	// DeliveryDelivered means the transport accepted the notification.
	DeliveryDelivered DeliveryStatus = "delivered"
	// DeliveryFailed means the attempt failed, see FailureKind.
	DeliveryFailed DeliveryStatus = "failed"
)

// FailureKind classifies a failed delivery.
type FailureKind string

const (
	// FailureNone is used for delivered records.
	FailureNone FailureKind = ""
	// FailureUnreachable means the contact or the transport could not be reached.
	FailureUnreachable FailureKind = "unreachable"
	// FailureTimeout means the attempt did not complete within the delivery timeout.
	FailureTimeout FailureKind = "timeout"
	// FailureRejected means the transport refused the notification.
	FailureRejected FailureKind = "rejected"
)

// NotifiedContact records one notification attempt against a contact snapshot.
type NotifiedContact struct {
	Contact     contact.Snapshot
	Status      DeliveryStatus
	FailureKind FailureKind
	// Reason is a human readable failure description, empty when delivered.
	Reason      string
	AttemptedAt time.Time
}

// Delivered reports whether the attempt succeeded.
func (n NotifiedContact) Delivered() bool {
	return n.Status == DeliveryDelivered
}

// AllFailed reports whether no record in the sequence was delivered.
// An empty sequence counts as failed: nobody was notified.
func AllFailed(records []NotifiedContact) bool {
	return !slices.ContainsFunc(records, NotifiedContact.Delivered)
}

// Retry is a later re-notification round for an alert whose first round failed.
type Retry struct {
	At       time.Time
	Contacts []NotifiedContact
}

// Alert is a distress event together with its notification outcome.
type Alert struct {
	ID        string
	CreatedAt time.Time
	// Label describes the detected sound or keyword.
	Label string
	// Confidence is the classifier score in the range 0..100.
	Confidence int
	State      State
	// NotifiedContacts is the first dispatch, in roster order. Never modified after Open.
	NotifiedContacts []NotifiedContact
	// NotificationFailed is set when every delivery attempt failed.
	NotificationFailed bool
	// ResolvedAt is nil unless State is StateResolved.
	ResolvedAt   *time.Time
	ResolveCause Cause
	// AutoResolveAfter is the timeout fixed when the alert was opened.
	AutoResolveAfter time.Duration
	Retries          []Retry
}

// IsResolved reports whether the alert reached its terminal state.
func (a *Alert) IsResolved() bool {
	return a.State == StateResolved
}

// Clone returns a deep copy of the alert to avoid leaking internal references.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}

	cloned := *a
	cloned.NotifiedContacts = slices.Clone(a.NotifiedContacts)

	if a.ResolvedAt != nil {
		resolvedAt := *a.ResolvedAt
		cloned.ResolvedAt = &resolvedAt
	}

	if a.Retries != nil {
		cloned.Retries = make([]Retry, len(a.Retries))
		for i, retry := range a.Retries {
			cloned.Retries[i] = Retry{
				At:       retry.At,
				Contacts: slices.Clone(retry.Contacts),
			}
		}
	}

	return &cloned
}
