package echopulse

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/echopulse/internal/api/wire"
	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/contact"
	domain "github.com/oshokin/echopulse/internal/domain/settings"
	"github.com/oshokin/echopulse/internal/service/ledger"
	"github.com/oshokin/echopulse/internal/service/session"
	store "github.com/oshokin/echopulse/internal/service/settings"
)

// Roster abstracts the contact operations the transport depends on.
type Roster interface {
	Add(ctx context.Context, name, phone, relationship string, requestedPrimary bool) (*contact.Contact, error)
	Update(ctx context.Context, id string, upd contact.Update) (*contact.Contact, error)
	Remove(ctx context.Context, id string) error
	SetPrimary(ctx context.Context, id string) error
	ListOrdered() []*contact.Contact
}

// Alerts abstracts the alert ledger.
type Alerts interface {
	Get(id string) (*alert.Alert, error)
	Resolve(ctx context.Context, id string) (*alert.Alert, error)
	Refresh(ctx context.Context, id string) (*alert.Alert, error)
	List(filter ledger.Filter) []*alert.Alert
	Recent(n int) []*alert.Alert
	History(filter ledger.Filter) []ledger.DayGroup
	Stats() ledger.Stats
}

// Monitor abstracts the monitoring session.
type Monitor interface {
	Start(ctx context.Context) session.Status
	Stop(ctx context.Context) session.Status
	Status() session.Status
	HandleDetection(ctx context.Context, label string, confidence int) (*alert.Alert, error)
	RetryNotification(ctx context.Context, alertID string) (*alert.Alert, error)
}

// Preferences abstracts the settings store.
type Preferences interface {
	Get() domain.Settings
	Update(ctx context.Context, u store.Update) (domain.Settings, error)
	AddKeyword(ctx context.Context, keyword string) (domain.Settings, error)
	RemoveKeyword(ctx context.Context, keyword string) (domain.Settings, error)
}

// Server implements EchoPulseServiceServer on top of the engine components.
type Server struct {
	roster   Roster
	alerts   Alerts
	monitor  Monitor
	settings Preferences
}

var _ EchoPulseServiceServer = (*Server)(nil)

// NewServer wires the engine components into a gRPC handler.
func NewServer(roster Roster, alerts Alerts, monitor Monitor, settings Preferences) *Server {
	return &Server{
		roster:   roster,
		alerts:   alerts,
		monitor:  monitor,
		settings: settings,
	}
}

// ListContacts returns the roster in notification order.
func (s *Server) ListContacts(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return encode(wire.Contacts(s.roster.ListOrdered()))
}

// AddContact inserts a contact.
func (s *Server) AddContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	added, err := s.roster.Add(ctx,
		wire.String(req, "name"),
		wire.String(req, "phone"),
		wire.String(req, "relationship"),
		wire.Bool(req, "is_primary"),
	)
	if err != nil {
		return nil, StatusError(err)
	}

	return encode(wire.Contact(added))
}

// UpdateContact changes a contact. Absent fields are left untouched.
func (s *Server) UpdateContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredID(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.roster.Update(ctx, id, wire.ToContactUpdate(req))
	if err != nil {
		return nil, StatusError(err)
	}

	return encode(wire.Contact(updated))
}

// RemoveContact deletes a contact.
func (s *Server) RemoveContact(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := requiredID(req)
	if err != nil {
		return nil, err
	}

	if err = s.roster.Remove(ctx, id); err != nil {
		return nil, StatusError(err)
	}

	return new(emptypb.Empty), nil
}

// SetPrimaryContact transfers primary status.
func (s *Server) SetPrimaryContact(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := requiredID(req)
	if err != nil {
		return nil, err
	}

	if err = s.roster.SetPrimary(ctx, id); err != nil {
		return nil, StatusError(err)
	}

	return new(emptypb.Empty), nil
}

// ListAlerts returns filtered alerts, newest first.
func (s *Server) ListAlerts(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := requiredFilter(req)
	if err != nil {
		return nil, err
	}

	return encode(wire.Alerts(s.alerts.List(filter)))
}

// RecentAlerts returns the newest alerts for the dashboard.
func (s *Server) RecentAlerts(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return encode(wire.Alerts(s.alerts.Recent(wire.Int(req, "limit"))))
}

// GetAlert returns one alert.
func (s *Server) GetAlert(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredID(req)
	if err != nil {
		return nil, err
	}

	return alertResponse(s.alerts.Get(id))
}

// ResolveAlert resolves an alert manually.
func (s *Server) ResolveAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredID(req)
	if err != nil {
		return nil, err
	}

	return alertResponse(s.alerts.Resolve(ctx, id))
}

// RefreshAlert restarts the auto-resolve timer of an active alert.
func (s *Server) RefreshAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredID(req)
	if err != nil {
		return nil, err
	}

	return alertResponse(s.alerts.Refresh(ctx, id))
}

// RetryNotification re-notifies the roster about an active alert.
func (s *Server) RetryNotification(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredID(req)
	if err != nil {
		return nil, err
	}

	return alertResponse(s.monitor.RetryNotification(ctx, id))
}

// AlertHistory returns filtered alerts grouped by day.
func (s *Server) AlertHistory(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := requiredFilter(req)
	if err != nil {
		return nil, err
	}

	return encode(wire.History(s.alerts.History(filter)))
}

// AlertStats returns alert counters.
func (s *Server) AlertStats(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return encode(wire.Stats(s.alerts.Stats()))
}

// StartMonitoring turns listening on.
func (s *Server) StartMonitoring(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encode(wire.Status(s.monitor.Start(ctx)))
}

// StopMonitoring turns listening off.
func (s *Server) StopMonitoring(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encode(wire.Status(s.monitor.Stop(ctx)))
}

// MonitoringStatus reports the session state.
func (s *Server) MonitoringStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return encode(wire.Status(s.monitor.Status()))
}

// HandleDetection feeds a classified detection into the session.
func (s *Server) HandleDetection(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	confidence, err := wire.RequiredInt(req, "confidence")
	if err != nil {
		return nil, StatusError(err)
	}

	return alertResponse(s.monitor.HandleDetection(ctx, wire.String(req, "label"), confidence))
}

// GetSettings returns the current settings.
func (s *Server) GetSettings(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return encode(wire.Settings(s.settings.Get()))
}

// UpdateSettings applies a partial settings update.
func (s *Server) UpdateSettings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return settingsResponse(s.settings.Update(ctx, wire.ToSettingsUpdate(req)))
}

// AddKeyword adds a detection keyword.
func (s *Server) AddKeyword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return settingsResponse(s.settings.AddKeyword(ctx, wire.String(req, "keyword")))
}

// RemoveKeyword removes a detection keyword.
func (s *Server) RemoveKeyword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return settingsResponse(s.settings.RemoveKeyword(ctx, wire.String(req, "keyword")))
}

// requiredID extracts the "id" field of a request.
func requiredID(req *structpb.Struct) (string, error) {
	id := strings.TrimSpace(wire.String(req, "id"))
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "id is required")
	}

	return id, nil
}

// requiredFilter decodes a ledger filter, rejecting unknown states.
func requiredFilter(req *structpb.Struct) (ledger.Filter, error) {
	filter, ok := wire.ToFilter(req)
	if !ok {
		return ledger.Filter{}, status.Errorf(codes.InvalidArgument, "unknown state filter %q", wire.String(req, "state"))
	}

	return filter, nil
}

func alertResponse(a *alert.Alert, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, StatusError(err)
	}

	return encode(wire.Alert(a))
}

func settingsResponse(current domain.Settings, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, StatusError(err)
	}

	return encode(wire.Settings(current))
}

// encode maps encoding failures to Internal.
func encode(msg *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode response")
	}

	return msg, nil
}
