package domain

import "time"

// TaskStatus represents the lifecycle state of a background agent task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether no further transition is valid from s.
func (s TaskStatus) Terminal() bool { return s == TaskCompleted || s == TaskFailed }

// TaskResult is the payload stored on a completed task.
type TaskResult struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	Usage    Usage  `json:"usage"`
}

// TaskInfo is a task record. The registry owns the live copy; callers only
// ever see snapshots.
type TaskInfo struct {
	ID          string      `json:"task_id"`
	Agent       string      `json:"agent"`
	Prompt      string      `json:"prompt"`
	Status      TaskStatus  `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Result      *TaskResult `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand out of the registry.
func (t *TaskInfo) Clone() *TaskInfo {
	c := *t
	if t.StartedAt != nil {
		s := *t.StartedAt
		c.StartedAt = &s
	}
	if t.CompletedAt != nil {
		e := *t.CompletedAt
		c.CompletedAt = &e
	}
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	return &c
}
