package echopulse

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "echopulse.v1.EchoPulseService"

// Method names.
const (
	MethodListContacts      = "ListContacts"
	MethodAddContact        = "AddContact"
	MethodUpdateContact     = "UpdateContact"
	MethodRemoveContact     = "RemoveContact"
	MethodSetPrimaryContact = "SetPrimaryContact"
	MethodListAlerts        = "ListAlerts"
	MethodRecentAlerts      = "RecentAlerts"
	MethodGetAlert          = "GetAlert"
	MethodResolveAlert      = "ResolveAlert"
	MethodRefreshAlert      = "RefreshAlert"
	MethodRetryNotification = "RetryNotification"
	MethodAlertHistory      = "AlertHistory"
	MethodAlertStats        = "AlertStats"
	MethodStartMonitoring   = "StartMonitoring"
	MethodStopMonitoring    = "StopMonitoring"
	MethodMonitoringStatus  = "MonitoringStatus"
	MethodHandleDetection   = "HandleDetection"
	MethodGetSettings       = "GetSettings"
	MethodUpdateSettings    = "UpdateSettings"
	MethodAddKeyword        = "AddKeyword"
	MethodRemoveKeyword     = "RemoveKeyword"
)

// EchoPulseServiceServer is the server API of the EchoPulse service.
type EchoPulseServiceServer interface {
	ListContacts(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	AddContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveContact(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	SetPrimaryContact(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)

	ListAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RecentAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ResolveAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RefreshAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RetryNotification(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AlertHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AlertStats(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)

	StartMonitoring(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	StopMonitoring(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	MonitoringStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	HandleDetection(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

	GetSettings(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	UpdateSettings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddKeyword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveKeyword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the EchoPulse service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EchoPulseServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodListContacts, EchoPulseServiceServer.ListContacts),
		unary(MethodAddContact, EchoPulseServiceServer.AddContact),
		unary(MethodUpdateContact, EchoPulseServiceServer.UpdateContact),
		unary(MethodRemoveContact, EchoPulseServiceServer.RemoveContact),
		unary(MethodSetPrimaryContact, EchoPulseServiceServer.SetPrimaryContact),
		unary(MethodListAlerts, EchoPulseServiceServer.ListAlerts),
		unary(MethodRecentAlerts, EchoPulseServiceServer.RecentAlerts),
		unary(MethodGetAlert, EchoPulseServiceServer.GetAlert),
		unary(MethodResolveAlert, EchoPulseServiceServer.ResolveAlert),
		unary(MethodRefreshAlert, EchoPulseServiceServer.RefreshAlert),
		unary(MethodRetryNotification, EchoPulseServiceServer.RetryNotification),
		unary(MethodAlertHistory, EchoPulseServiceServer.AlertHistory),
		unary(MethodAlertStats, EchoPulseServiceServer.AlertStats),
		unary(MethodStartMonitoring, EchoPulseServiceServer.StartMonitoring),
		unary(MethodStopMonitoring, EchoPulseServiceServer.StopMonitoring),
		unary(MethodMonitoringStatus, EchoPulseServiceServer.MonitoringStatus),
		unary(MethodHandleDetection, EchoPulseServiceServer.HandleDetection),
		unary(MethodGetSettings, EchoPulseServiceServer.GetSettings),
		unary(MethodUpdateSettings, EchoPulseServiceServer.UpdateSettings),
		unary(MethodAddKeyword, EchoPulseServiceServer.AddKeyword),
		unary(MethodRemoveKeyword, EchoPulseServiceServer.RemoveKeyword),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "echopulse/v1/echopulse.proto",
}

// RegisterEchoPulseServiceServer registers srv on s.
func RegisterEchoPulseServiceServer(s grpc.ServiceRegistrar, srv EchoPulseServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the "/service/method" path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds a method descriptor that decodes Req and calls the bound server method.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](
	method string,
	call func(EchoPulseServiceServer, context.Context, PReq) (Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(
			srv any,
			ctx context.Context,
			dec func(any) error,
			interceptor grpc.UnaryServerInterceptor,
		) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}

			server, _ := srv.(EchoPulseServiceServer)

			if interceptor == nil {
				return call(server, ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}

			handler := func(ctx context.Context, req any) (any, error) {
				typed, _ := req.(PReq)

				return call(server, ctx, typed)
			}

			return interceptor(ctx, in, info, handler)
		},
	}
}

// EchoPulseServiceClient is the client API of the EchoPulse service.
type EchoPulseServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEchoPulseServiceClient creates a client over cc.
func NewEchoPulseServiceClient(cc grpc.ClientConnInterface) *EchoPulseServiceClient {
	return &EchoPulseServiceClient{cc: cc}
}

// Call invokes method with in and decodes the reply into out.
func (c *EchoPulseServiceClient) Call(
	ctx context.Context,
	method string,
	in, out proto.Message,
	opts ...grpc.CallOption,
) error {
	return c.cc.Invoke(ctx, FullMethod(method), in, out, opts...)
}

// Struct invokes a method answering with a Struct.
func (c *EchoPulseServiceClient) Struct(
	ctx context.Context,
	method string,
	in proto.Message,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.Call(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Empty invokes a method answering with Empty.
func (c *EchoPulseServiceClient) Empty(
	ctx context.Context,
	method string,
	in proto.Message,
	opts ...grpc.CallOption,
) error {
	return c.Call(ctx, method, in, new(emptypb.Empty), opts...)
}
