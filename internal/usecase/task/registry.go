package task

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"multiagent-mcp/internal/domain"
)

// IDPrefix starts every task id.
const IDPrefix = "task_"

// DefaultRetention is how long a finished task stays visible.
const DefaultRetention = time.Hour

type entry struct {
	info domain.TaskInfo
	done chan struct{} // closed on the terminal transition
}

// Registry is the in-memory task store. Every method is one atomic step
// under the registry lock; callers only ever receive snapshots.
type Registry struct {
	mu      sync.Mutex
	tasks   map[string]*entry
	entropy *ulid.MonotonicEntropy
	bus     domain.EventBus
	logger  *slog.Logger
	now     func() time.Time
}

// NewRegistry creates an empty registry. bus may be nil.
func NewRegistry(bus domain.EventBus, logger *slog.Logger) *Registry {
	return &Registry{
		tasks:   make(map[string]*entry),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		bus:     bus,
		logger:  logger,
		now:     time.Now,
	}
}

// Create inserts a pending task and returns it.
func (r *Registry) Create(ctx context.Context, agent, prompt string) *domain.TaskInfo {
	r.mu.Lock()
	now := r.now()
	e := &entry{
		info: domain.TaskInfo{
			ID:        r.newID(now),
			Agent:     agent,
			Prompt:    prompt,
			Status:    domain.TaskPending,
			CreatedAt: now,
		},
		done: make(chan struct{}),
	}
	r.tasks[e.info.ID] = e
	snap := e.info.Clone()
	r.mu.Unlock()

	r.emit(ctx, domain.EventTaskCreated, snap)
	r.logger.Info("task created", "task_id", snap.ID, "agent", agent)
	return snap
}

// Get returns a snapshot of the task.
func (r *Registry) Get(id string) (*domain.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok {
		return nil, domain.NewSubSystemError("task", "Registry.Get", domain.ErrNotFound, id)
	}
	return e.info.Clone(), nil
}

// SetRunning moves a pending task to running. It reports whether the
// transition happened; unknown ids and any other state are ignored.
func (r *Registry) SetRunning(ctx context.Context, id string) bool {
	r.mu.Lock()
	e, ok := r.tasks[id]
	if !ok || e.info.Status != domain.TaskPending {
		r.mu.Unlock()
		return false
	}
	now := r.now()
	e.info.Status = domain.TaskRunning
	e.info.StartedAt = &now
	snap := e.info.Clone()
	r.mu.Unlock()

	r.emit(ctx, domain.EventTaskRunning, snap)
	r.logger.Info("task running", "task_id", id, "agent", snap.Agent)
	return true
}

// SetCompleted settles the task with a result.
func (r *Registry) SetCompleted(ctx context.Context, id string, result domain.TaskResult) bool {
	snap, ok := r.settle(id, func(info *domain.TaskInfo) {
		info.Status = domain.TaskCompleted
		info.Result = &result
	})
	if !ok {
		return false
	}
	r.emit(ctx, domain.EventTaskCompleted, snap)
	r.logger.Info("task completed", "task_id", id, "agent", snap.Agent, "model", result.Model,
		"duration", snap.CompletedAt.Sub(snap.CreatedAt))
	return true
}

// SetFailed settles the task with an error message.
func (r *Registry) SetFailed(ctx context.Context, id, message string) bool {
	snap, ok := r.settle(id, func(info *domain.TaskInfo) {
		info.Status = domain.TaskFailed
		info.Error = message
	})
	if !ok {
		return false
	}
	r.emit(ctx, domain.EventTaskFailed, snap)
	r.logger.Info("task failed", "task_id", id, "agent", snap.Agent, "error", message)
	return true
}

// settle applies the terminal transition once. Terminal tasks and unknown
// ids are left untouched.
func (r *Registry) settle(id string, apply func(*domain.TaskInfo)) (*domain.TaskInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok || e.info.Status.Terminal() {
		return nil, false
	}
	now := r.now()
	apply(&e.info)
	e.info.CompletedAt = &now
	close(e.done)
	return e.info.Clone(), true
}

// List returns every task, newest first.
func (r *Registry) List() []*domain.TaskInfo {
	r.mu.Lock()
	out := make([]*domain.TaskInfo, 0, len(r.tasks))
	for _, e := range r.tasks {
		out = append(out, e.info.Clone())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		// ulids are monotonic within a millisecond
		return out[i].ID > out[j].ID
	})
	return out
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Cleanup evicts finished tasks whose completion is older than retention.
// Pending and running tasks are never evicted.
func (r *Registry) Cleanup(ctx context.Context, retention time.Duration) int {
	if retention <= 0 {
		retention = DefaultRetention
	}

	r.mu.Lock()
	cutoff := r.now().Add(-retention)
	var evicted []*domain.TaskInfo
	for id, e := range r.tasks {
		if !e.info.Status.Terminal() || e.info.CompletedAt == nil {
			continue
		}
		if e.info.CompletedAt.Before(cutoff) {
			evicted = append(evicted, e.info.Clone())
			delete(r.tasks, id)
		}
	}
	r.mu.Unlock()

	for _, info := range evicted {
		r.emit(ctx, domain.EventTaskEvicted, info)
		r.logger.Debug("task evicted", "task_id", info.ID, "agent", info.Agent)
	}
	return len(evicted)
}

// Wait blocks until the task is terminal, timeout elapses or ctx is done.
// It wakes on the terminal transition and re-checks every poll interval.
// Timing out is not an error: the current snapshot is returned with
// timedOut set.
func (r *Registry) Wait(ctx context.Context, id string, timeout, poll time.Duration) (info *domain.TaskInfo, timedOut bool, err error) {
	r.mu.Lock()
	e, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return nil, false, domain.NewSubSystemError("task", "Registry.Wait", domain.ErrNotFound, id)
	}
	done := e.done
	r.mu.Unlock()

	var tick <-chan time.Time
	if poll > 0 {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		tick = ticker.C
	}
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		info, err := r.Get(id)
		if err != nil {
			return nil, false, domain.WrapOp("Registry.Wait", err)
		}
		if info.Status.Terminal() {
			return info, false, nil
		}

		select {
		case <-done:
		case <-tick:
		case <-deadline:
			info, err := r.Get(id)
			if err != nil {
				return nil, false, domain.WrapOp("Registry.Wait", err)
			}
			return info, !info.Status.Terminal(), nil
		case <-ctx.Done():
			return info, false, domain.WrapOp("Registry.Wait", ctx.Err())
		}
	}
}

func (r *Registry) emit(ctx context.Context, typ domain.EventType, info *domain.TaskInfo) {
	if r.bus == nil {
		return
	}
	data, _ := json.Marshal(domain.TaskEventPayload{Agent: info.Agent, Status: info.Status, Error: info.Error})
	r.bus.Publish(ctx, domain.Event{
		Type:      typ,
		Timestamp: r.now(),
		TaskID:    info.ID,
		Payload:   data,
	})
}

// newID must be called with r.mu held; the monotonic entropy is not safe
// for concurrent use.
func (r *Registry) newID(t time.Time) string {
	return IDPrefix + strings.ToLower(ulid.MustNew(ulid.Timestamp(t), r.entropy).String())
}
