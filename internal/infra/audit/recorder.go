package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"multiagent-mcp/internal/domain"
)

var auditTypes = map[domain.EventType]domain.AuditEventType{
	domain.EventTaskCreated:          domain.AuditTaskCreated,
	domain.EventTaskRunning:          domain.AuditTaskStarted,
	domain.EventTaskCompleted:        domain.AuditTaskCompleted,
	domain.EventTaskFailed:           domain.AuditTaskFailed,
	domain.EventTaskEvicted:          domain.AuditTaskEvicted,
	domain.EventEngineCircuitChanged: domain.AuditCircuitChanged,
}

// Recorder returns an event bus handler that writes every task lifecycle and
// circuit breaker event to sink. Write failures are logged, not retried.
func Recorder(sink domain.AuditLogger, logger *slog.Logger) domain.EventHandler {
	return func(ctx context.Context, e domain.Event) {
		typ, ok := auditTypes[e.Type]
		if !ok {
			return
		}
		entry := domain.AuditEvent{
			Timestamp: e.Timestamp.UTC(),
			Type:      typ,
			Resource:  e.TaskID,
		}

		switch e.Type {
		case domain.EventEngineCircuitChanged:
			var p struct {
				Provider string `json:"provider"`
				From     string `json:"from"`
				To       string `json:"to"`
			}
			_ = json.Unmarshal(e.Payload, &p)
			entry.Resource = p.Provider
			entry.Action = "circuit"
			entry.Outcome = p.To
			entry.Detail = map[string]string{"from": p.From, "to": p.To}
		default:
			var p domain.TaskEventPayload
			_ = json.Unmarshal(e.Payload, &p)
			entry.Actor = p.Agent
			entry.Action = string(p.Status)
			switch e.Type {
			case domain.EventTaskCompleted:
				entry.Outcome = "success"
			case domain.EventTaskFailed:
				entry.Outcome = "failure"
				entry.Detail = map[string]string{"error": p.Error}
			}
		}

		if err := sink.Log(ctx, entry); err != nil {
			logger.Warn("audit write failed", "event", string(e.Type), "error", err)
		}
	}
}
