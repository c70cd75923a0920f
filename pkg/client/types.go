package client

import (
	"time"

	tagview "tagview/engine/core"
)

// HealthResponse is returned by GET /health on a host.
type HealthResponse struct {
	Status       string    `json:"status"`
	Server       string    `json:"server"`
	Version      string    `json:"version"`
	Device       string    `json:"device,omitempty"`
	Elements     int       `json:"elements"`
	LastSnapshot time.Time `json:"last_snapshot,omitempty"`
}

// ElementListResponse is returned by GET /api/v1/elements.
type ElementListResponse struct {
	Elements []tagview.ElementView `json:"elements"`
	Count    int                   `json:"count"`
}

// InputRequest carries the display text for input and edit calls.
type InputRequest struct {
	Display *string `json:"display,omitempty"`
}

// InteractionResponse is returned by the edit and click calls. Mutation is nil
// when the interaction produced no request (a toggle with no known state).
type InteractionResponse struct {
	RequestID string            `json:"request_id,omitempty"`
	Tag       tagview.TagView   `json:"tag"`
	Mutation  *tagview.Mutation `json:"mutation,omitempty"`
}

// RenderResponse is returned when a snapshot is pushed to a host.
type RenderResponse struct {
	Group string              `json:"group"`
	Stats tagview.RenderStats `json:"stats"`
}

// APILogEntry is one recorded host API operation.
type APILogEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Endpoint   string    `json:"endpoint"`
	Resource   string    `json:"resource"`
	Status     string    `json:"status"`
	StatusCode int       `json:"statusCode"`
	ErrorMsg   string    `json:"errorMsg,omitempty"`
	Details    string    `json:"details,omitempty"`
}

// APILogsResponse is returned by GET /api/v1/logs.
type APILogsResponse struct {
	Logs  []APILogEntry `json:"logs"`
	Count int           `json:"count"`
}
