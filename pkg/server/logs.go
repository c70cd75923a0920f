package server

import (
	"log"
	"time"

	"github.com/google/uuid"
)

var GlobalDebugEnabled bool

// APILogEntry is one recorded API or device operation.
type APILogEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Endpoint   string    `json:"endpoint"`
	Resource   string    `json:"resource"`
	Status     string    `json:"status"` // "success" or "error"
	StatusCode int       `json:"statusCode"`
	ErrorMsg   string    `json:"errorMsg,omitempty"`
	Details    string    `json:"details,omitempty"`
}

// LogAPIOperation records an operation in the API log and returns its id.
func (s *Server) LogAPIOperation(method, endpoint, resource, status string, statusCode int, errorMsg, details string) string {
	entry := APILogEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Method:     method,
		Endpoint:   endpoint,
		Resource:   resource,
		Status:     status,
		StatusCode: statusCode,
		ErrorMsg:   errorMsg,
		Details:    details,
	}
	s.apiLogs.Append(entry)
	return entry.ID
}

// InfoLog prints logs if debug is enabled
func InfoLog(format string, v ...any) {
	if GlobalDebugEnabled {
		log.Printf(format, v...)
	}
}

// ErrorLog always prints logs
func ErrorLog(format string, v ...any) {
	log.Printf(format, v...)
}
