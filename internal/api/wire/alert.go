package wire

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/contact"
	"github.com/oshokin/echopulse/internal/service/ledger"
)

func notifiedFields(records []alert.NotifiedContact) []any {
	items := make([]any, 0, len(records))

	for _, r := range records {
		items = append(items, map[string]any{
			"contact_id":   r.Contact.ID,
			"name":         r.Contact.Name,
			"phone":        r.Contact.Phone,
			"relationship": r.Contact.Relationship,
			"status":       string(r.Status),
			"failure_kind": string(r.FailureKind),
			"reason":       r.Reason,
			"attempted_at": formatTime(r.AttemptedAt),
		})
	}

	return items
}

func toNotified(items []*structpb.Struct) []alert.NotifiedContact {
	records := make([]alert.NotifiedContact, 0, len(items))

	for _, item := range items {
		records = append(records, alert.NotifiedContact{
			Contact: contact.Snapshot{
				ID:           String(item, "contact_id"),
				Name:         String(item, "name"),
				Phone:        String(item, "phone"),
				Relationship: String(item, "relationship"),
			},
			Status:      alert.DeliveryStatus(String(item, "status")),
			FailureKind: alert.FailureKind(String(item, "failure_kind")),
			Reason:      String(item, "reason"),
			AttemptedAt: Time(item, "attempted_at"),
		})
	}

	return records
}

// AlertFields encodes an alert.
func AlertFields(a *alert.Alert) map[string]any {
	retries := make([]any, 0, len(a.Retries))
	for _, r := range a.Retries {
		retries = append(retries, map[string]any{
			"at":       formatTime(r.At),
			"contacts": notifiedFields(r.Contacts),
		})
	}

	fields := map[string]any{
		"id":                  a.ID,
		"created_at":          formatTime(a.CreatedAt),
		"label":               a.Label,
		"confidence":          a.Confidence,
		"state":               string(a.State),
		"notified_contacts":   notifiedFields(a.NotifiedContacts),
		"notification_failed": a.NotificationFailed,
		"resolve_cause":       string(a.ResolveCause),
		"auto_resolve_after":  a.AutoResolveAfter.String(),
		"retries":             retries,
	}

	if a.ResolvedAt != nil {
		fields["resolved_at"] = formatTime(*a.ResolvedAt)
	}

	return fields
}

// ToAlert decodes an alert.
func ToAlert(s *structpb.Struct) *alert.Alert {
	a := &alert.Alert{
		ID:                 String(s, "id"),
		CreatedAt:          Time(s, "created_at"),
		Label:              String(s, "label"),
		Confidence:         Int(s, "confidence"),
		State:              alert.State(String(s, "state")),
		NotifiedContacts:   toNotified(Structs(s, "notified_contacts")),
		NotificationFailed: Bool(s, "notification_failed"),
		ResolveCause:       alert.Cause(String(s, "resolve_cause")),
		AutoResolveAfter:   Duration(s, "auto_resolve_after"),
	}

	if Has(s, "resolved_at") {
		resolvedAt := Time(s, "resolved_at")
		a.ResolvedAt = &resolvedAt
	}

	for _, item := range Structs(s, "retries") {
		a.Retries = append(a.Retries, alert.Retry{
			At:       Time(item, "at"),
			Contacts: toNotified(Structs(item, "contacts")),
		})
	}

	return a
}

// Alert encodes a single alert message.
func Alert(a *alert.Alert) (*structpb.Struct, error) {
	return Message(AlertFields(a))
}

func alertList(alerts []*alert.Alert) []any {
	items := make([]any, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, AlertFields(a))
	}

	return items
}

func toAlerts(items []*structpb.Struct) []*alert.Alert {
	result := make([]*alert.Alert, 0, len(items))
	for _, item := range items {
		result = append(result, ToAlert(item))
	}

	return result
}

// Alerts encodes an alert list as {"alerts": [...]}.
func Alerts(alerts []*alert.Alert) (*structpb.Struct, error) {
	return Message(map[string]any{"alerts": alertList(alerts)})
}

// ToAlerts decodes the list produced by Alerts.
func ToAlerts(s *structpb.Struct) []*alert.Alert {
	return toAlerts(Structs(s, "alerts"))
}

// FilterFields encodes a ledger filter.
func FilterFields(f ledger.Filter) map[string]any {
	return map[string]any{
		"state": string(f.State),
		"query": f.Query,
	}
}

// ToFilter decodes a ledger filter. Unknown states are reported by ok=false.
func ToFilter(s *structpb.Struct) (ledger.Filter, bool) {
	state, ok := ledger.ParseStateFilter(String(s, "state"))

	return ledger.Filter{
		State: state,
		Query: String(s, "query"),
	}, ok
}

// History encodes day groups as {"days": [{"date", "alerts"}]}.
func History(groups []ledger.DayGroup) (*structpb.Struct, error) {
	days := make([]any, 0, len(groups))
	for _, g := range groups {
		days = append(days, map[string]any{
			"date":   g.Date,
			"alerts": alertList(g.Alerts),
		})
	}

	return Message(map[string]any{"days": days})
}

// ToHistory decodes the groups produced by History.
func ToHistory(s *structpb.Struct) []ledger.DayGroup {
	items := Structs(s, "days")
	groups := make([]ledger.DayGroup, 0, len(items))

	for _, item := range items {
		groups = append(groups, ledger.DayGroup{
			Date:   String(item, "date"),
			Alerts: toAlerts(Structs(item, "alerts")),
		})
	}

	return groups
}

// Stats encodes ledger counters.
func Stats(stats ledger.Stats) (*structpb.Struct, error) {
	return Message(map[string]any{
		"total":               stats.Total,
		"active":              stats.Active,
		"resolved_manual":     stats.ResolvedManual,
		"resolved_timeout":    stats.ResolvedTimeout,
		"notification_failed": stats.NotificationFailed,
	})
}

// ToStats decodes ledger counters.
func ToStats(s *structpb.Struct) ledger.Stats {
	return ledger.Stats{
		Total:              Int(s, "total"),
		Active:             Int(s, "active"),
		ResolvedManual:     Int(s, "resolved_manual"),
		ResolvedTimeout:    Int(s, "resolved_timeout"),
		NotificationFailed: Int(s, "notification_failed"),
	}
}
