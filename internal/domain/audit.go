package domain

import (
	"context"
	"time"
)

// AuditEventType classifies audit log entries.
type AuditEventType string

const (
	AuditTaskCreated    AuditEventType = "task_created"
	AuditTaskStarted    AuditEventType = "task_started"
	AuditTaskCompleted  AuditEventType = "task_completed"
	AuditTaskFailed     AuditEventType = "task_failed"
	AuditTaskEvicted    AuditEventType = "task_evicted"
	AuditCircuitChanged AuditEventType = "circuit_changed"
)

// AuditEvent represents a single auditable action.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      AuditEventType    `json:"type"`
	Detail    map[string]string `json:"detail,omitempty"`

	Actor    string `json:"actor,omitempty"`    // agent name
	Resource string `json:"resource,omitempty"` // task id or provider
	Action   string `json:"action,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

// AuditLogger writes audit events to a persistent log.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error
	Close() error
}
