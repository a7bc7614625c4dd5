package alarm

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/repository/alarmrepo"
	"github.com/oshokin/alarm-clock/internal/service/scheduler"
)

// Service abstracts the daemon operations the transport layer depends on.
type Service interface {
	// Reschedule re-reads the alarm and arms its next occurrence.
	// A zero time means the alarm is disabled and nothing is armed.
	Reschedule(ctx context.Context, alarmID int64) (time.Time, error)
	Cancel(ctx context.Context, alarmID int64) error
	Trigger(ctx context.Context, alarmID int64) error
	StopPlayback(ctx context.Context) error
	Status(ctx context.Context) Status
}

// Server implements ControlServer on top of a Service.
type Server struct {
	// service provides the daemon operations.
	service Service
}

var _ ControlServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{service: service}
}

// Reschedule implements ControlServer.
func (s *Server) Reschedule(ctx context.Context, req *wrapperspb.Int64Value) (*timestamppb.Timestamp, error) {
	id, err := alarmID(req)
	if err != nil {
		return nil, err
	}

	at, err := s.service.Reschedule(ctx, id)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	if at.IsZero() {
		return new(timestamppb.Timestamp), nil
	}

	return timestamppb.New(at), nil
}

// Cancel implements ControlServer.
func (s *Server) Cancel(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	id, err := alarmID(req)
	if err != nil {
		return nil, err
	}

	if err = s.service.Cancel(ctx, id); err != nil {
		return nil, toStatus(ctx, err)
	}

	return new(emptypb.Empty), nil
}

// Trigger implements ControlServer.
func (s *Server) Trigger(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	id, err := alarmID(req)
	if err != nil {
		return nil, err
	}

	if err = s.service.Trigger(ctx, id); err != nil {
		return nil, toStatus(ctx, err)
	}

	return new(emptypb.Empty), nil
}

// StopPlayback implements ControlServer.
func (s *Server) StopPlayback(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.service.StopPlayback(ctx); err != nil {
		return nil, toStatus(ctx, err)
	}

	return new(emptypb.Empty), nil
}

// Status implements ControlServer.
func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.service.Status(ctx).ToStruct()
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return st, nil
}

// alarmID validates the request id.
func alarmID(req *wrapperspb.Int64Value) (int64, error) {
	if req == nil || req.GetValue() <= 0 {
		return 0, status.Error(codes.InvalidArgument, "a positive alarm id is required")
	}

	return req.GetValue(), nil
}

// toStatus maps service errors to gRPC status codes.
func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, alarmrepo.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, scheduler.ErrSchedulingFailure):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		logger.ErrorKV(ctx, "Control request failed", "error", err)

		return status.Error(codes.Internal, err.Error())
	}
}

// FromStatus restores the sentinel errors a Server encoded.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return errors.Join(alarmrepo.ErrNotFound, err)
	case codes.FailedPrecondition:
		return errors.Join(scheduler.ErrSchedulingFailure, err)
	default:
		return err
	}
}
