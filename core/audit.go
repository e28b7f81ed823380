package core

import (
	"context"
	"time"
)

// AuditEvent describes one completed mutating request.
type AuditEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	Subject    string    `json:"subject,omitempty"`
}

// AuditSink persists audit events. Implementations must be safe for
// concurrent use.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent) error
}

func isMutation(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}
