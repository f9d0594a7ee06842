package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/logger"
)

func readEntries(t *testing.T, path string) []domain.AuditEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	var out []domain.AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e domain.AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Unmarshal %q: %v", scanner.Text(), err)
		}
		out = append(out, e)
	}
	return out
}

func TestFileLogger_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := NewFileLogger(path, RetentionPolicy{})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	err = l.Log(context.Background(), domain.AuditEvent{
		Type:     domain.AuditTaskCompleted,
		Actor:    "oracle",
		Resource: "task_01",
		Outcome:  "success",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readEntries(t, path)
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Type != domain.AuditTaskCompleted || entries[0].Actor != "oracle" {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("timestamp should default to now")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestFileLogger_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := NewFileLogger(path, RetentionPolicy{})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Log(context.Background(), domain.AuditEvent{Type: domain.AuditTaskCreated})
		}()
	}
	wg.Wait()
	l.Close()

	if n := len(readEntries(t, path)); n != 20 {
		t.Errorf("got %d entries, want 20", n)
	}
}

func TestFileLogger_LogAfterCloseFails(t *testing.T) {
	l, err := NewFileLogger(filepath.Join(t.TempDir(), "audit.jsonl"), RetentionPolicy{})
	if err != nil {
		t.Fatal(err)
	}
	l.Close()
	err = l.Log(context.Background(), domain.AuditEvent{Type: domain.AuditTaskCreated})
	if domain.ErrorCodeOf(err) != domain.CodeAuditWrite {
		t.Errorf("code = %s, want %s", domain.ErrorCodeOf(err), domain.CodeAuditWrite)
	}
}

func TestEnforceRetention_MaxAge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := NewFileLogger(path, RetentionPolicy{MaxAge: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	_ = l.Log(ctx, domain.AuditEvent{Type: domain.AuditTaskCreated, Resource: "old", Timestamp: now.Add(-2 * time.Hour)})
	_ = l.Log(ctx, domain.AuditEvent{Type: domain.AuditTaskCreated, Resource: "new", Timestamp: now.Add(-time.Minute)})

	removed, err := l.EnforceRetention(ctx)
	if err != nil {
		t.Fatalf("EnforceRetention: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	// The handle was reopened; appends still land in the file.
	_ = l.Log(ctx, domain.AuditEvent{Type: domain.AuditTaskCreated, Resource: "after"})
	entries := readEntries(t, path)
	if len(entries) != 2 || entries[0].Resource != "new" || entries[1].Resource != "after" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestEnforceRetention_MaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := NewFileLogger(path, RetentionPolicy{MaxSize: 300})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_ = l.Log(ctx, domain.AuditEvent{Type: domain.AuditTaskCreated, Resource: strings.Repeat("x", 40)})
	}

	removed, err := l.EnforceRetention(ctx)
	if err != nil {
		t.Fatalf("EnforceRetention: %v", err)
	}
	if removed == 0 {
		t.Fatal("expected oldest entries to be trimmed")
	}
	info, _ := os.Stat(path)
	if info.Size() > 300 {
		t.Errorf("size = %d, want <= 300", info.Size())
	}
}

func TestEnforceRetention_NoPolicy(t *testing.T) {
	l, err := NewFileLogger(filepath.Join(t.TempDir(), "audit.jsonl"), RetentionPolicy{})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if n, err := l.EnforceRetention(context.Background()); n != 0 || err != nil {
		t.Errorf("EnforceRetention() = %d, %v", n, err)
	}
}

type memorySink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (m *memorySink) Log(_ context.Context, e domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memorySink) Close() error { return nil }

func TestRecorder(t *testing.T) {
	sink := &memorySink{}
	record := Recorder(sink, logger.Discard())
	ctx := context.Background()

	failed, _ := json.Marshal(domain.TaskEventPayload{Agent: "oracle", Status: domain.TaskFailed, Error: "boom"})
	record(ctx, domain.Event{Type: domain.EventTaskFailed, TaskID: "task_1", Timestamp: time.Now(), Payload: failed})

	circuit, _ := json.Marshal(map[string]string{"provider": "codex", "from": "closed", "to": "open"})
	record(ctx, domain.Event{Type: domain.EventEngineCircuitChanged, Timestamp: time.Now(), Payload: circuit})

	record(ctx, domain.Event{Type: "something.else"})

	if len(sink.events) != 2 {
		t.Fatalf("got %d events, want 2", len(sink.events))
	}
	task := sink.events[0]
	if task.Type != domain.AuditTaskFailed || task.Actor != "oracle" || task.Resource != "task_1" ||
		task.Outcome != "failure" || task.Detail["error"] != "boom" {
		t.Errorf("task entry = %+v", task)
	}
	cb := sink.events[1]
	if cb.Type != domain.AuditCircuitChanged || cb.Resource != "codex" || cb.Outcome != "open" {
		t.Errorf("circuit entry = %+v", cb)
	}
}
