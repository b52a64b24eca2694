package ledger

import (
	"strings"

	"github.com/oshokin/echopulse/internal/domain/alert"
)

// StateFilter selects alerts by state.
type StateFilter string

const (
	// FilterAll matches every alert.
	FilterAll StateFilter = "all"
	// FilterActive matches active alerts.
	FilterActive StateFilter = "active"
	// FilterResolved matches resolved alerts.
	FilterResolved StateFilter = "resolved"
)

// ParseStateFilter converts string input to a StateFilter. Empty input means all.
func ParseStateFilter(s string) (StateFilter, bool) {
	switch StateFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, true
	case FilterActive:
		return FilterActive, true
	case FilterResolved:
		return FilterResolved, true
	default:
		return FilterAll, false
	}
}

// Filter narrows List and History results.
type Filter struct {
	State StateFilter
	// Query is matched case-insensitively against the label and notified contact names.
	Query string
}

// Matches reports whether a passes the filter.
func (f Filter) Matches(a *alert.Alert) bool {
	switch f.State {
	case FilterActive:
		if a.State != alert.StateActive {
			return false
		}
	case FilterResolved:
		if a.State != alert.StateResolved {
			return false
		}
	case FilterAll, "":
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	if query == "" {
		return true
	}

	if strings.Contains(strings.ToLower(a.Label), query) {
		return true
	}

	for _, notified := range a.NotifiedContacts {
		if strings.Contains(strings.ToLower(notified.Contact.Name), query) {
			return true
		}
	}

	return false
}
