package alarm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified name of the control service.
const ServiceName = "alarmclock.v1.ControlService"

// Full method names.
const (
	MethodReschedule   = "/" + ServiceName + "/Reschedule"
	MethodCancel       = "/" + ServiceName + "/Cancel"
	MethodTrigger      = "/" + ServiceName + "/Trigger"
	MethodStopPlayback = "/" + ServiceName + "/StopPlayback"
	MethodStatus       = "/" + ServiceName + "/Status"
)

// ControlServer is the server API of the control service.
type ControlServer interface {
	Reschedule(ctx context.Context, req *wrapperspb.Int64Value) (*timestamppb.Timestamp, error)
	Cancel(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error)
	Trigger(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error)
	StopPlayback(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error)
	Status(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterControlServer registers srv on the gRPC server.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

// ControlServiceDesc describes the control service for grpc.Server.
//
//nolint:gochecknoglobals // Service descriptors are package level by convention.
var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reschedule", Handler: rescheduleHandler},
		{MethodName: "Cancel", Handler: cancelHandler},
		{MethodName: "Trigger", Handler: triggerHandler},
		{MethodName: "StopPlayback", Handler: stopPlaybackHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarmclock/v1/control.proto",
}

func rescheduleHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}

	call := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Reschedule(ctx, req.(*wrapperspb.Int64Value))
	}

	if interceptor == nil {
		return call(ctx, in)
	}

	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodReschedule}, call)
}

func cancelHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}

	call := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Cancel(ctx, req.(*wrapperspb.Int64Value))
	}

	if interceptor == nil {
		return call(ctx, in)
	}

	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodCancel}, call)
}

func triggerHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}

	call := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Trigger(ctx, req.(*wrapperspb.Int64Value))
	}

	if interceptor == nil {
		return call(ctx, in)
	}

	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodTrigger}, call)
}

func stopPlaybackHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	call := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).StopPlayback(ctx, req.(*emptypb.Empty))
	}

	if interceptor == nil {
		return call(ctx, in)
	}

	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodStopPlayback}, call)
}

func statusHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	call := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Status(ctx, req.(*emptypb.Empty))
	}

	if interceptor == nil {
		return call(ctx, in)
	}

	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodStatus}, call)
}
