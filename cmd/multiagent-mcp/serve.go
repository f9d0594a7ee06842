package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"multiagent-mcp/internal/adapter/engine"
	"multiagent-mcp/internal/adapter/mcpserver"
	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/audit"
	"multiagent-mcp/internal/infra/config"
	"multiagent-mcp/internal/infra/logger"
	"multiagent-mcp/internal/infra/tracer"
	"multiagent-mcp/internal/usecase/eventbus"
	"multiagent-mcp/internal/usecase/invoke"
	"multiagent-mcp/internal/usecase/multiagent"
	"multiagent-mcp/internal/usecase/task"
)

const defaultShutdownGrace = 30 * time.Second

// app holds every long-lived component so shutdown can stop them in order.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	bus      *eventbus.Bus
	resolver *engine.Resolver
	catalog  *multiagent.Catalog
	registry *task.Registry
	executor *task.Executor
	janitor  *task.Janitor
	server   *mcpserver.Server
	audit    *audit.FileLogger // nil when disabled
}

// newApp wires the components. runner is nil outside tests.
func newApp(cfg *config.Config, log *slog.Logger, runner engine.Runner) (*app, error) {
	bus := eventbus.New(log, 0)
	bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		log.Debug("event", "type", string(e.Type), "task_id", e.TaskID, "payload", string(e.Payload))
	})

	resolver := engine.NewDefaultResolver(cfg.Engines, runner, log, func(p domain.ProviderKind, from, to string) {
		payload, _ := json.Marshal(map[string]string{"provider": string(p), "from": from, "to": to})
		bus.Publish(context.Background(), domain.Event{
			Type:      domain.EventEngineCircuitChanged,
			Timestamp: time.Now(),
			Payload:   payload,
		})
	})

	catalog, err := multiagent.NewCatalog(multiagent.Roster(), log)
	if err != nil {
		bus.Close()
		return nil, err
	}
	if err := multiagent.LoadOverrides(catalog, cfg.Agents, log); err != nil {
		bus.Close()
		return nil, err
	}

	caller := invoke.NewCaller(catalog, resolver, invoke.NewAdapter(log), cfg.Agents.DefaultCwd, log)
	registry := task.NewRegistry(bus, log)
	executor := task.NewExecutor(registry, caller, log)
	janitor, err := task.NewJanitor(registry, cfg.Tasks.Retention, cfg.Tasks.SweepSchedule, log)
	if err != nil {
		bus.Close()
		return nil, err
	}

	var auditLog *audit.FileLogger
	if cfg.Audit.Path != "" {
		maxSize, _ := cfg.Audit.MaxSizeBytes() // checked by config.Validate
		auditLog, err = audit.NewFileLogger(cfg.Audit.Path, audit.RetentionPolicy{MaxAge: cfg.Audit.MaxAge, MaxSize: maxSize})
		if err != nil {
			bus.Close()
			return nil, err
		}
		bus.SubscribeAll(audit.Recorder(auditLog, log))
		janitor.OnSweep(func(ctx context.Context) {
			if n, err := auditLog.EnforceRetention(ctx); err != nil {
				log.Warn("audit retention failed", "error", err)
			} else if n > 0 {
				log.Debug("audit entries trimmed", "count", n)
			}
		})
	}

	srv := mcpserver.New(cfg, mcpserver.Deps{
		Catalog: catalog,
		Caller:  caller,
		Starter: executor,
		Store:   registry,
		Logger:  log,
	})

	return &app{
		cfg:      cfg,
		logger:   log,
		bus:      bus,
		resolver: resolver,
		catalog:  catalog,
		registry: registry,
		executor: executor,
		janitor:  janitor,
		server:   srv,
		audit:    auditLog,
	}, nil
}

// serve blocks on the configured transport until ctx is done or the client
// disconnects, then shuts everything down.
func (a *app) serve(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	a.janitor.Start()
	a.logger.Info("multiagent-mcp starting",
		"version", a.cfg.Server.Version,
		"transport", a.cfg.Server.Transport,
		"agents", len(a.catalog.Names()),
	)

	var serveErr error
	switch a.cfg.Server.Transport {
	case "http":
		serveErr = a.server.ServeHTTP(ctx, a.cfg.HTTP)
	default:
		serveErr = a.server.ServeStdio(ctx, stdin, stdout)
	}
	return errors.Join(serveErr, a.shutdown())
}

func (a *app) shutdown() error {
	grace := a.cfg.Tasks.ShutdownGrace
	if grace <= 0 {
		grace = defaultShutdownGrace
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	var errs []error
	if err := a.janitor.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop janitor: %w", err))
	}
	if n := a.executor.InFlight(); n > 0 {
		a.logger.Info("waiting for running tasks", "count", n, "grace", grace)
	}
	if err := a.executor.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	a.bus.Close()
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit log: %w", err))
		}
	}
	a.logger.Info("multiagent-mcp stopped", "tasks", a.registry.Len(), "events_dropped", a.bus.Dropped())
	return errors.Join(errs...)
}

func runServe(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(tctx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	a, err := newApp(cfg, log, nil)
	if err != nil {
		return err
	}
	return a.serve(ctx, stdin, stdout)
}
