package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/tracer"
)

// RetentionPolicy controls how long audit entries are kept.
type RetentionPolicy struct {
	MaxAge  time.Duration // 0 = no limit
	MaxSize int64         // bytes; 0 = no limit
}

// FileLogger implements domain.AuditLogger by appending JSONL to a file.
type FileLogger struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	retention RetentionPolicy
	now       func() time.Time
}

// NewFileLogger opens path for appending, creating it with 0600 permissions.
func NewFileLogger(path string, retention RetentionPolicy) (*FileLogger, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &FileLogger{file: f, path: path, retention: retention, now: time.Now}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
}

// Log writes event as one JSON line and mirrors it onto the active span.
func (a *FileLogger) Log(ctx context.Context, event domain.AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = a.now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return domain.NewDomainError("FileLogger.Log", domain.ErrAuditWrite, err.Error())
	}

	a.mu.Lock()
	_, err = a.file.Write(append(data, '\n'))
	a.mu.Unlock()
	if err != nil {
		return domain.NewDomainError("FileLogger.Log", domain.ErrAuditWrite, err.Error())
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		attrs := make([]attribute.KeyValue, 0, len(event.Detail)+1)
		attrs = append(attrs, tracer.StringAttr("audit.resource", event.Resource))
		for k, v := range event.Detail {
			attrs = append(attrs, tracer.StringAttr("audit."+k, v))
		}
		span.AddEvent("audit."+string(event.Type), trace.WithAttributes(attrs...))
	}
	return nil
}

// Close closes the log file.
func (a *FileLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// EnforceRetention rewrites the log keeping only entries inside the policy.
// Oldest entries go first when the size limit is exceeded.
func (a *FileLogger) EnforceRetention(_ context.Context) (removed int, err error) {
	policy := a.retention
	if policy.MaxAge <= 0 && policy.MaxSize <= 0 {
		return 0, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if policy.MaxAge <= 0 {
		info, err := os.Stat(a.path)
		if err != nil {
			return 0, fmt.Errorf("stat audit log: %w", err)
		}
		if info.Size() <= policy.MaxSize {
			return 0, nil
		}
	}

	var cutoff time.Time
	if policy.MaxAge > 0 {
		cutoff = a.now().Add(-policy.MaxAge)
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return 0, fmt.Errorf("read audit log: %w", err)
	}

	var kept [][]byte
	var keptSize int64
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !cutoff.IsZero() {
			var entry struct {
				Timestamp time.Time `json:"timestamp"`
			}
			if json.Unmarshal(line, &entry) == nil && entry.Timestamp.Before(cutoff) {
				removed++
				continue
			}
		}
		kept = append(kept, bytes.Clone(line))
		keptSize += int64(len(line)) + 1
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan audit log: %w", err)
	}

	for policy.MaxSize > 0 && keptSize > policy.MaxSize && len(kept) > 0 {
		keptSize -= int64(len(kept[0])) + 1
		kept = kept[1:]
		removed++
	}
	if removed == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	for _, line := range kept {
		buf.Write(line)
		buf.WriteByte('\n')
	}
	tmpPath := a.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return 0, fmt.Errorf("write temp file: %w", err)
	}

	// The rename invalidates the append handle.
	if err := a.file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("close for retention: %w", err)
	}
	renameErr := os.Rename(tmpPath, a.path)
	if renameErr != nil {
		_ = os.Remove(tmpPath)
	}
	a.file, err = openAppend(a.path)
	if err != nil {
		return removed, fmt.Errorf("reopen after retention: %w", err)
	}
	if renameErr != nil {
		return 0, fmt.Errorf("rename temp file: %w", renameErr)
	}
	return removed, nil
}

var _ domain.AuditLogger = (*FileLogger)(nil)
