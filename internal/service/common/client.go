//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/echopulse/internal/api/grpc/echopulse"
	"github.com/oshokin/echopulse/internal/api/wire"
	"github.com/oshokin/echopulse/internal/config"
	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/domain/contact"
	domain "github.com/oshokin/echopulse/internal/domain/settings"
	"github.com/oshokin/echopulse/internal/service/ledger"
	"github.com/oshokin/echopulse/internal/service/session"
	store "github.com/oshokin/echopulse/internal/service/settings"
)

// Client wraps the EchoPulse gRPC service with domain-typed helpers.
type Client struct {
	// conn is the underlying gRPC connection to the server.
	conn *grpc.ClientConn
	// api is the service client.
	api *api.EchoPulseServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor is sent with every call, empty to send nothing.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor identifies the caller in the server audit log.
func WithActor(actor string) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the EchoPulse server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if client.actor != "" {
		dialOptions = append(dialOptions, grpc.WithUnaryInterceptor(actorInterceptor(client.actor)))
	}

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial echopulse server: %w", err)
	}

	client.conn = conn
	client.api = api.NewEchoPulseServiceClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// ListContacts returns the roster in notification order.
func (c *Client) ListContacts(ctx context.Context) ([]*contact.Contact, error) {
	resp, err := c.call(ctx, api.MethodListContacts, new(emptypb.Empty))
	if err != nil {
		return nil, err
	}

	return wire.ToContacts(resp), nil
}

// AddContact inserts a contact.
func (c *Client) AddContact(
	ctx context.Context,
	name, phone, relationship string,
	primary bool,
) (*contact.Contact, error) {
	resp, err := c.callFields(ctx, api.MethodAddContact, map[string]any{
		"name":         name,
		"phone":        phone,
		"relationship": relationship,
		"is_primary":   primary,
	})
	if err != nil {
		return nil, err
	}

	return wire.ToContact(resp), nil
}

// UpdateContact changes a contact.
func (c *Client) UpdateContact(ctx context.Context, id string, upd contact.Update) (*contact.Contact, error) {
	resp, err := c.callFields(ctx, api.MethodUpdateContact, wire.ContactUpdateFields(id, upd))
	if err != nil {
		return nil, err
	}

	return wire.ToContact(resp), nil
}

// RemoveContact deletes a contact.
func (c *Client) RemoveContact(ctx context.Context, id string) error {
	return c.callEmpty(ctx, api.MethodRemoveContact, map[string]any{"id": id})
}

// SetPrimaryContact transfers primary status to the contact.
func (c *Client) SetPrimaryContact(ctx context.Context, id string) error {
	return c.callEmpty(ctx, api.MethodSetPrimaryContact, map[string]any{"id": id})
}

// ListAlerts returns filtered alerts, newest first.
func (c *Client) ListAlerts(ctx context.Context, filter ledger.Filter) ([]*alert.Alert, error) {
	resp, err := c.callFields(ctx, api.MethodListAlerts, wire.FilterFields(filter))
	if err != nil {
		return nil, err
	}

	return wire.ToAlerts(resp), nil
}

// RecentAlerts returns up to limit newest alerts; zero uses the server default.
func (c *Client) RecentAlerts(ctx context.Context, limit int) ([]*alert.Alert, error) {
	resp, err := c.callFields(ctx, api.MethodRecentAlerts, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}

	return wire.ToAlerts(resp), nil
}

// GetAlert returns one alert.
func (c *Client) GetAlert(ctx context.Context, id string) (*alert.Alert, error) {
	return c.alertByID(ctx, api.MethodGetAlert, id)
}

// ResolveAlert resolves an alert manually.
func (c *Client) ResolveAlert(ctx context.Context, id string) (*alert.Alert, error) {
	return c.alertByID(ctx, api.MethodResolveAlert, id)
}

// RefreshAlert restarts the auto-resolve timer of an alert.
func (c *Client) RefreshAlert(ctx context.Context, id string) (*alert.Alert, error) {
	return c.alertByID(ctx, api.MethodRefreshAlert, id)
}

// RetryNotification re-notifies the roster about an alert.
func (c *Client) RetryNotification(ctx context.Context, id string) (*alert.Alert, error) {
	return c.alertByID(ctx, api.MethodRetryNotification, id)
}

// AlertHistory returns filtered alerts grouped by day.
func (c *Client) AlertHistory(ctx context.Context, filter ledger.Filter) ([]ledger.DayGroup, error) {
	resp, err := c.callFields(ctx, api.MethodAlertHistory, wire.FilterFields(filter))
	if err != nil {
		return nil, err
	}

	return wire.ToHistory(resp), nil
}

// AlertStats returns alert counters.
func (c *Client) AlertStats(ctx context.Context) (ledger.Stats, error) {
	resp, err := c.call(ctx, api.MethodAlertStats, new(emptypb.Empty))
	if err != nil {
		return ledger.Stats{}, err
	}

	return wire.ToStats(resp), nil
}

// StartMonitoring turns listening on.
func (c *Client) StartMonitoring(ctx context.Context) (session.Status, error) {
	return c.status(ctx, api.MethodStartMonitoring)
}

// StopMonitoring turns listening off.
func (c *Client) StopMonitoring(ctx context.Context) (session.Status, error) {
	return c.status(ctx, api.MethodStopMonitoring)
}

// MonitoringStatus reports the session state.
func (c *Client) MonitoringStatus(ctx context.Context) (session.Status, error) {
	return c.status(ctx, api.MethodMonitoringStatus)
}

// HandleDetection submits a classified detection.
func (c *Client) HandleDetection(ctx context.Context, label string, confidence int) (*alert.Alert, error) {
	resp, err := c.callFields(ctx, api.MethodHandleDetection, map[string]any{
		"label":      label,
		"confidence": confidence,
	})
	if err != nil {
		return nil, err
	}

	return wire.ToAlert(resp), nil
}

// GetSettings returns the current settings.
func (c *Client) GetSettings(ctx context.Context) (domain.Settings, error) {
	return c.settings(c.call(ctx, api.MethodGetSettings, new(emptypb.Empty)))
}

// UpdateSettings applies a partial settings update.
func (c *Client) UpdateSettings(ctx context.Context, u store.Update) (domain.Settings, error) {
	return c.settings(c.callFields(ctx, api.MethodUpdateSettings, wire.SettingsUpdateFields(u)))
}

// AddKeyword adds a detection keyword.
func (c *Client) AddKeyword(ctx context.Context, keyword string) (domain.Settings, error) {
	return c.settings(c.callFields(ctx, api.MethodAddKeyword, map[string]any{"keyword": keyword}))
}

// RemoveKeyword removes a detection keyword.
func (c *Client) RemoveKeyword(ctx context.Context, keyword string) (domain.Settings, error) {
	return c.settings(c.callFields(ctx, api.MethodRemoveKeyword, map[string]any{"keyword": keyword}))
}

func (c *Client) alertByID(ctx context.Context, method, id string) (*alert.Alert, error) {
	resp, err := c.callFields(ctx, method, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}

	return wire.ToAlert(resp), nil
}

func (c *Client) status(ctx context.Context, method string) (session.Status, error) {
	resp, err := c.call(ctx, method, new(emptypb.Empty))
	if err != nil {
		return session.Status{}, err
	}

	return wire.ToStatus(resp), nil
}

func (*Client) settings(resp *structpb.Struct, err error) (domain.Settings, error) {
	if err != nil {
		return domain.Settings{}, err
	}

	return wire.ToSettings(resp), nil
}

// callFields encodes fields as the request Struct.
func (c *Client) callFields(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := wire.Message(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	return c.call(ctx, method, req)
}

// call invokes a method answering with a Struct and restores domain errors.
func (c *Client) call(ctx context.Context, method string, req proto.Message) (*structpb.Struct, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Struct(callCtx, method, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, api.FromStatus(err))
	}

	return resp, nil
}

// callEmpty invokes a method answering with Empty.
func (c *Client) callEmpty(ctx context.Context, method string, fields map[string]any) error {
	req, err := wire.Message(fields)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err = c.api.Empty(callCtx, method, req); err != nil {
		return fmt.Errorf("%s: %w", method, api.FromStatus(err))
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
