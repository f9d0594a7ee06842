package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/usecase/invoke"
)

// Caller prepares and runs agent calls. *invoke.Caller implements it.
type Caller interface {
	Prepare(req invoke.Request) (*invoke.Prepared, error)
	Run(ctx context.Context, p *invoke.Prepared) (*domain.InvocationResult, error)
}

// Executor starts agent calls in the background and settles their outcome
// into the registry exactly once.
type Executor struct {
	registry *Registry
	caller   Caller
	logger   *slog.Logger

	// mu orders the stopping check and wg.Add in Start against Shutdown.
	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewExecutor creates an executor over registry.
func NewExecutor(registry *Registry, caller Caller, logger *slog.Logger) *Executor {
	return &Executor{registry: registry, caller: caller, logger: logger}
}

// Start validates req, creates a pending task and returns it without
// waiting for the call. Configuration errors are returned here and no task
// is created for them.
func (e *Executor) Start(ctx context.Context, req invoke.Request) (*domain.TaskInfo, *invoke.Prepared, error) {
	p, err := e.caller.Prepare(req)
	if err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	if e.stopping {
		e.mu.Unlock()
		return nil, nil, errShuttingDown()
	}
	e.wg.Add(1)
	e.inFlight.Add(1)
	e.mu.Unlock()

	info := e.registry.Create(ctx, p.Agent().Name, req.Prompt)
	// The call outlives the tool request that started it.
	go e.run(context.WithoutCancel(ctx), info.ID, p)

	return info, p, nil
}

func (e *Executor) run(ctx context.Context, id string, p *invoke.Prepared) {
	defer e.wg.Done()
	defer e.inFlight.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task panicked", "task_id", id, "panic", r)
			e.registry.SetFailed(ctx, id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	e.registry.SetRunning(ctx, id)

	res, err := e.caller.Run(ctx, p)

	var settled bool
	if err != nil {
		settled = e.registry.SetFailed(ctx, id, err.Error())
	} else {
		settled = e.registry.SetCompleted(ctx, id, domain.TaskResult{
			Response: res.Text,
			Model:    res.Model,
			Usage:    res.Usage,
		})
	}
	if !settled {
		e.logger.Warn("task outcome dropped, record missing or already settled", "task_id", id)
	}
}

// InFlight reports how many background calls have not settled.
func (e *Executor) InFlight() int { return int(e.inFlight.Load()) }

// Shutdown stops accepting tasks and waits for in-flight ones until ctx is
// done.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.stopping = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return domain.NewDomainError("Executor.Shutdown", ctx.Err(),
			fmt.Sprintf("%d task(s) still running", e.InFlight()))
	}
}

func errShuttingDown() error {
	return domain.NewSubSystemError("task", "Executor.Start", domain.ErrDisabled, "server is shutting down")
}
