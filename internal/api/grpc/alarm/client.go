package alarm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlClient is the client stub of the control service.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient creates a stub over the connection.
func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

// Reschedule asks the daemon to re-read and re-arm an alarm.
func (c *ControlClient) Reschedule(
	ctx context.Context,
	in *wrapperspb.Int64Value,
	opts ...grpc.CallOption,
) (*timestamppb.Timestamp, error) {
	out := new(timestamppb.Timestamp)
	if err := c.cc.Invoke(ctx, MethodReschedule, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Cancel removes the live registration of an alarm.
func (c *ControlClient) Cancel(
	ctx context.Context,
	in *wrapperspb.Int64Value,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodCancel, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Trigger fires an alarm now.
func (c *ControlClient) Trigger(
	ctx context.Context,
	in *wrapperspb.Int64Value,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodTrigger, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// StopPlayback silences whatever is playing.
func (c *ControlClient) StopPlayback(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodStopPlayback, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// Status returns the daemon status document.
func (c *ControlClient) Status(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodStatus, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
