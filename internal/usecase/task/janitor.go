package task

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor sweeps expired tasks from the registry on a schedule.
type Janitor struct {
	cron      *cron.Cron
	registry  *Registry
	retention time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
	hooks   []func(context.Context)
}

// NewJanitor creates a janitor. schedule is a cron expression, a descriptor
// such as "@every 5m", or a plain duration.
func NewJanitor(registry *Registry, retention time.Duration, schedule string, logger *slog.Logger) (*Janitor, error) {
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return nil, fmt.Errorf("janitor: invalid schedule %q: %w", schedule, err)
	}
	j := &Janitor{
		cron:      cron.New(),
		registry:  registry,
		retention: retention,
		logger:    logger,
	}
	j.cron.Schedule(sched, cron.FuncJob(func() { j.Sweep(context.Background()) }))
	return j, nil
}

// OnSweep registers fn to run after every sweep, on the same schedule.
func (j *Janitor) OnSweep(fn func(context.Context)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.hooks = append(j.hooks, fn)
}

// Sweep runs one eviction pass and returns the number of evicted tasks.
func (j *Janitor) Sweep(ctx context.Context) int {
	n := j.registry.Cleanup(ctx, j.retention)
	if n > 0 {
		j.logger.Info("expired tasks evicted", "count", n, "remaining", j.registry.Len())
	}

	j.mu.Lock()
	hooks := slices.Clone(j.hooks)
	j.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
	return n
}

// Start begins sweeping in the background.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started {
		return
	}
	j.cron.Start()
	j.started = true
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.started {
		return nil
	}
	j.started = false
	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ParseSchedule parses a cron expression or descriptor, falling back to a
// positive duration.
func ParseSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if sched, err := parser.Parse(schedule); err == nil {
		return sched, nil
	}
	d, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("not a valid cron expression or duration: %q", schedule)
	}
	if d <= 0 {
		return nil, fmt.Errorf("duration must be positive: %q", schedule)
	}
	return constantDelay(d), nil
}

// constantDelay fires at a fixed interval; unlike cron.Every it keeps
// sub-second precision.
type constantDelay time.Duration

func (d constantDelay) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }
