package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	tagview "tagview/engine/core"
)

// Device endpoints.
const (
	DeviceAPIPath    = "/api"
	DeviceStreamPath = "/ws"
)

// RequestIDHeader carries the id a host assigns to every mutation it sends.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID makes SendMutation reuse id instead of generating one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// GetSnapshot fetches the device's current model.
func (c *Client) GetSnapshot(ctx context.Context) (*tagview.Snapshot, error) {
	var s tagview.Snapshot
	if err := c.RequestContext(ctx, http.MethodGet, DeviceAPIPath, nil, &s, nil); err != nil {
		return nil, err
	}
	return &s, nil
}

// SendMutation posts a write request to the device and returns the request id
// it was sent under. The device answers with its next snapshot on its own
// schedule; the response body is ignored.
func (c *Client) SendMutation(ctx context.Context, m *tagview.Mutation) (string, error) {
	if m == nil || m.Len() == 0 {
		return "", errors.New("empty mutation")
	}
	id := requestID(ctx)
	header := http.Header{RequestIDHeader: []string{id}}
	if err := c.RequestContext(ctx, http.MethodPost, DeviceAPIPath, m, nil, header); err != nil {
		return id, err
	}
	return id, nil
}

// Stream reads snapshots pushed over the device websocket and hands each one
// to fn until ctx is cancelled, the connection drops or fn returns an error.
// Frames that do not decode are logged and skipped.
func (c *Client) Stream(ctx context.Context, fn func(*tagview.Snapshot) error) error {
	wsURL, err := c.streamURL()
	if err != nil {
		return err
	}
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, http.Header{"User-Agent": []string{userAgent}})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial %s failed (status %d): %w", wsURL, resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial %s failed: %w", wsURL, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("websocket read failed: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var s tagview.Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			tagview.ErrorLog("[DEVICE] Dropping undecodable frame: %v\n", err)
			continue
		}
		if err := fn(&s); err != nil {
			return err
		}
	}
}

func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/") + DeviceStreamPath)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}
