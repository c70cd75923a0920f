package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const userAgent = "tagview/1.0.0"

// Client talks to either end of the system: a device (GET/POST /api, /ws) or a
// running tagview host (/api/v1/...). BaseURL selects which.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 30*time.Second)
}

// NewClientWithTimeout creates a new API client with custom timeout
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
	}
}

// Request performs an HTTP request and decodes JSON response
func (c *Client) Request(method, path string, body any, result any) error {
	return c.RequestContext(context.Background(), method, path, body, result, nil)
}

// RequestContext is Request with a context and extra request headers.
func (c *Client) RequestContext(ctx context.Context, method, path string, body any, result any, header http.Header) error {
	resp, err := c.doRequest(ctx, method, path, body, "application/json", header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// RawRequest performs an HTTP request and returns the raw response body
func (c *Client) RawRequest(method, path string, body any, contentType string) ([]byte, error) {
	resp, err := c.doRequest(context.Background(), method, path, body, contentType, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, contentType string, header http.Header) (*http.Response, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		if data, ok := body.([]byte); ok {
			bodyReader = bytes.NewReader(data)
		} else {
			jsonBody, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %w", err)
			}
			bodyReader = bytes.NewReader(jsonBody)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	return resp, nil
}

// APIError is returned for responses with status >= 400.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}
