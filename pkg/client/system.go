package client

import "net/http"

// GetLogs retrieves the host's API operation log
func (c *Client) GetLogs() (*APILogsResponse, error) {
	var result APILogsResponse
	err := c.Request(http.MethodGet, "/api/v1/logs", nil, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearLogs empties the host's API operation log
func (c *Client) ClearLogs() error {
	return c.Request(http.MethodDelete, "/api/v1/logs", nil, nil)
}
