package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/alarm-clock/internal/config"
)

const maxErrorBody = 512

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	// Op is the failed operation.
	Op string
	// Code is the HTTP status code.
	Code int
	// Body is the beginning of the response body.
	Body string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: provider answered %d: %s", e.Op, e.Code, e.Body)
}

// Client talks to the provider's playback API.
type Client struct {
	endpoint string
	device   string
	token    string
	http     *http.Client
}

type createSessionRequest struct {
	URI    string `json:"uri"`
	Device string `json:"device,omitempty"`
}

type createSessionResponse struct {
	ID string `json:"id"`
}

type playRequest struct {
	VolumePercent int `json:"volume_percent"`
}

// NewClient creates a client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg config.StreamConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		device:   cfg.Device,
		token:    cfg.Token,
		http:     httpClient,
	}
}

// Connect opens a session for the track and returns its id.
func (c *Client) Connect(ctx context.Context, uri string) (string, error) {
	var resp createSessionResponse

	err := c.do(ctx, "connect", http.MethodPost, "/v1/sessions", nil,
		createSessionRequest{URI: uri, Device: c.device}, &resp)
	if err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", fmt.Errorf("connect: provider returned no session id")
	}

	return resp.ID, nil
}

// Play starts the session at the volume.
func (c *Client) Play(ctx context.Context, session string, volume float64) error {
	return c.do(ctx, "play", http.MethodPut, sessionPath(session, "play"), nil,
		playRequest{VolumePercent: percent(volume)}, nil)
}

// Seek moves playback to the position.
func (c *Client) Seek(ctx context.Context, session string, position time.Duration) error {
	query := url.Values{"position_ms": {strconv.FormatInt(position.Milliseconds(), 10)}}

	return c.do(ctx, "seek", http.MethodPut, sessionPath(session, "seek"), query, nil, nil)
}

// SetVolume changes the session volume.
func (c *Client) SetVolume(ctx context.Context, session string, volume float64) error {
	query := url.Values{"volume_percent": {strconv.Itoa(percent(volume))}}

	return c.do(ctx, "volume", http.MethodPut, sessionPath(session, "volume"), query, nil, nil)
}

// Pause pauses the session.
func (c *Client) Pause(ctx context.Context, session string) error {
	return c.do(ctx, "pause", http.MethodPut, sessionPath(session, "pause"), nil, nil, nil)
}

// Release closes the session.
func (c *Client) Release(ctx context.Context, session string) error {
	return c.do(ctx, "release", http.MethodDelete, sessionPath(session, ""), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	if out == nil {
		return nil
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}

	return nil
}

func sessionPath(session, action string) string {
	p := "/v1/sessions/" + url.PathEscape(session)
	if action != "" {
		p += "/" + action
	}

	return p
}

func percent(volume float64) int {
	return int(max(0, min(100, volume*100+0.5)))
}
