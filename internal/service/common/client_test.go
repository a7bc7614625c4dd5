//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestClient_UnreachableDaemon checks that a missing daemon is reported as unavailable.
func TestClient_UnreachableDaemon(t *testing.T) {
	t.Parallel()

	// Port 1 on loopback is reserved and refuses connections.
	c, err := Dial(context.Background(), "127.0.0.1:1", WithCallTimeout(2*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	err = c.Trigger(context.Background(), 1)
	require.Error(t, err)
	require.True(t, IsUnavailable(err))
}

// TestIsUnavailable classifies wrapped and unrelated errors.
func TestIsUnavailable(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("trigger alarm 1: %w", status.Error(codes.Unavailable, "connection refused"))

	require.True(t, IsUnavailable(wrapped))
	require.False(t, IsUnavailable(status.Error(codes.NotFound, "missing")))
	require.False(t, IsUnavailable(errors.New("plain")))
	require.False(t, IsUnavailable(nil))
}
