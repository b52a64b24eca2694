package client

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/contact"
	domain "github.com/oshokin/echopulse/internal/domain/settings"
	"github.com/oshokin/echopulse/internal/service/ledger"
	"github.com/oshokin/echopulse/internal/service/session"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	none       = "-"
)

var (
	activeColor  = color.New(color.FgRed, color.Bold)
	failedColor  = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

// PrintContacts renders the roster in notification order.
func PrintContacts(out io.Writer, contacts []*contact.Contact) error {
	if len(contacts) == 0 {
		_, err := fmt.Fprintln(out, "No emergency contacts.")

		return err
	}

	w := newTable(out)
	_, _ = fmt.Fprintln(w, "#\tID\tNAME\tPHONE\tRELATIONSHIP\tPRIMARY")

	for i, c := range contacts {
		primary := ""
		if c.IsPrimary {
			primary = successColor.Sprint("yes")
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, c.ID, c.Name, c.Phone, orNone(c.Relationship), primary)
	}

	return w.Flush()
}

// PrintContact renders a single contact.
func PrintContact(out io.Writer, c *contact.Contact) error {
	return PrintContacts(out, []*contact.Contact{c})
}

// PrintAlerts renders alerts as a table, newest first.
func PrintAlerts(out io.Writer, alerts []*alert.Alert) error {
	if len(alerts) == 0 {
		_, err := fmt.Fprintln(out, "No alerts.")

		return err
	}

	w := newTable(out)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tLABEL\tCONFIDENCE\tSTATE\tNOTIFIED")

	for _, a := range alerts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
			a.ID, formatTime(a.CreatedAt), a.Label, a.Confidence, stateText(a), notifiedSummary(a))
	}

	return w.Flush()
}

// PrintAlert renders an alert with every notification attempt.
func PrintAlert(out io.Writer, a *alert.Alert) error {
	w := newTable(out)

	_, _ = fmt.Fprintf(w, "ID:\t%s\n", a.ID)
	_, _ = fmt.Fprintf(w, "Label:\t%s\n", a.Label)
	_, _ = fmt.Fprintf(w, "Confidence:\t%d%%\n", a.Confidence)
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", formatTime(a.CreatedAt))
	_, _ = fmt.Fprintf(w, "State:\t%s\n", stateText(a))
	_, _ = fmt.Fprintf(w, "Auto-resolve after:\t%s\n", a.AutoResolveAfter)

	if a.ResolvedAt != nil {
		_, _ = fmt.Fprintf(w, "Resolved:\t%s (%s)\n", formatTime(*a.ResolvedAt), a.ResolveCause)
	}

	if a.NotificationFailed {
		_, _ = fmt.Fprintf(w, "Warning:\t%s\n", failedColor.Sprint("no contact could be notified"))
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if err := printAttempts(out, "Notified contacts", a.NotifiedContacts); err != nil {
		return err
	}

	for i, r := range a.Retries {
		if err := printAttempts(out, fmt.Sprintf("Retry %d at %s", i+1, formatTime(r.At)), r.Contacts); err != nil {
			return err
		}
	}

	return nil
}

func printAttempts(out io.Writer, title string, records []alert.NotifiedContact) error {
	_, _ = fmt.Fprintf(out, "\n%s:\n", title)

	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "  nobody")

		return err
	}

	w := newTable(out)

	for i, r := range records {
		outcome := successColor.Sprint("delivered")
		if !r.Delivered() {
			outcome = failedColor.Sprintf("failed (%s)", r.FailureKind)
		}

		_, _ = fmt.Fprintf(w, "  %d.\t%s\t%s\t%s\n", i+1, r.Contact.Name, r.Contact.Phone, outcome)
	}

	return w.Flush()
}

// PrintHistory renders alerts grouped by day.
func PrintHistory(out io.Writer, groups []ledger.DayGroup) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(out, "No alerts.")

		return err
	}

	for i, g := range groups {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}

		_, _ = fmt.Fprintf(out, "%s\n", g.Date)

		if err := PrintAlerts(out, g.Alerts); err != nil {
			return err
		}
	}

	return nil
}

// PrintStats renders alert counters.
func PrintStats(out io.Writer, stats ledger.Stats) error {
	w := newTable(out)

	_, _ = fmt.Fprintf(w, "Total:\t%d\n", stats.Total)
	_, _ = fmt.Fprintf(w, "Active:\t%d\n", stats.Active)
	_, _ = fmt.Fprintf(w, "Resolved manually:\t%d\n", stats.ResolvedManual)
	_, _ = fmt.Fprintf(w, "Resolved by timeout:\t%d\n", stats.ResolvedTimeout)
	_, _ = fmt.Fprintf(w, "Notification failed:\t%d\n", stats.NotificationFailed)

	return w.Flush()
}

// PrintStatus renders the monitoring session state.
func PrintStatus(out io.Writer, st session.Status) error {
	w := newTable(out)

	state := "stopped"
	if st.Listening {
		state = successColor.Sprint("listening")
	}

	_, _ = fmt.Fprintf(w, "Monitoring:\t%s\n", state)

	if st.Listening {
		_, _ = fmt.Fprintf(w, "Since:\t%s\n", formatTime(st.StartedAt))
	}

	_, _ = fmt.Fprintf(w, "Alerts raised:\t%d\n", st.Alerted)
	_, _ = fmt.Fprintf(w, "Detections ignored:\t%d\n", st.Ignored)

	return w.Flush()
}

// PrintSettings renders user settings.
func PrintSettings(out io.Writer, s domain.Settings) error {
	w := newTable(out)

	_, _ = fmt.Fprintf(w, "Sensitivity:\t%s\n", s.Sensitivity)
	_, _ = fmt.Fprintf(w, "Auto-resolve timeout:\t%d min\n", s.AutoResolveTimeoutMinutes)
	_, _ = fmt.Fprintf(w, "Notification sounds:\t%t\n", s.NotificationSounds)
	_, _ = fmt.Fprintf(w, "Keywords:\t%s\n", orNone(strings.Join(s.DetectKeywords, ", ")))

	return w.Flush()
}

func stateText(a *alert.Alert) string {
	if a.IsResolved() {
		return fmt.Sprintf("resolved (%s)", a.ResolveCause)
	}

	return activeColor.Sprint("ACTIVE")
}

func notifiedSummary(a *alert.Alert) string {
	delivered := 0

	for _, r := range a.NotifiedContacts {
		if r.Delivered() {
			delivered++
		}
	}

	summary := fmt.Sprintf("%d/%d", delivered, len(a.NotifiedContacts))
	if a.NotificationFailed {
		return failedColor.Sprint(summary + " FAILED")
	}

	return summary
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return none
	}

	return t.Local().Format(timeLayout)
}

func orNone(s string) string {
	if s == "" {
		return none
	}

	return s
}
