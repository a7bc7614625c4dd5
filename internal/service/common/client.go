//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
)

// Client wraps the control service stub with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the daemon.
	conn *grpc.ClientConn
	// api is the control service stub.
	api *api.ControlClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
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

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial prepares a connection to the daemon control service. The connection
// is established lazily on the first call.
// Note: this uses insecure transport credentials; the daemon listens on
// loopback by default.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alarm daemon: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewControlClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Reschedule asks the daemon to re-arm the alarm and returns the armed
// instant, or a zero time when the alarm is disabled.
func (c *Client) Reschedule(ctx context.Context, alarmID int64) (time.Time, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	ts, err := c.api.Reschedule(callCtx, wrapperspb.Int64(alarmID))
	if err != nil {
		return time.Time{}, fmt.Errorf("reschedule alarm %d: %w", alarmID, api.FromStatus(err))
	}

	if ts.GetSeconds() == 0 && ts.GetNanos() == 0 {
		return time.Time{}, nil
	}

	return ts.AsTime(), nil
}

// Cancel asks the daemon to drop the alarm's wake-up.
func (c *Client) Cancel(ctx context.Context, alarmID int64) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.Cancel(callCtx, wrapperspb.Int64(alarmID)); err != nil {
		return fmt.Errorf("cancel alarm %d: %w", alarmID, api.FromStatus(err))
	}

	return nil
}

// Trigger fires the alarm in the daemon now.
func (c *Client) Trigger(ctx context.Context, alarmID int64) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.Trigger(callCtx, wrapperspb.Int64(alarmID)); err != nil {
		return fmt.Errorf("trigger alarm %d: %w", alarmID, api.FromStatus(err))
	}

	return nil
}

// StopPlayback silences the daemon.
func (c *Client) StopPlayback(ctx context.Context) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.StopPlayback(callCtx, new(emptypb.Empty)); err != nil {
		return fmt.Errorf("stop playback: %w", api.FromStatus(err))
	}

	return nil
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (api.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	st, err := c.api.Status(callCtx, new(emptypb.Empty))
	if err != nil {
		return api.Status{}, fmt.Errorf("daemon status: %w", api.FromStatus(err))
	}

	return api.StatusFromStruct(st)
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	return st.Code() == codes.Unavailable || st.Code() == codes.DeadlineExceeded
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
