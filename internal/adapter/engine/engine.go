package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/config"
	"multiagent-mcp/internal/infra/tracer"
)

// Engine builds execution handles for one provider.
type Engine interface {
	Provider() domain.ProviderKind
	Handle(model string, policy domain.AccessPolicy, workDir string) domain.ModelHandle
}

// cliEngine holds what every CLI-backed engine shares: the binary settings,
// the runner and the logger.
type cliEngine struct {
	provider domain.ProviderKind
	cfg      config.EngineConfig
	runner   Runner
	logger   *slog.Logger
}

func newCLIEngine(p domain.ProviderKind, cfg config.EngineConfig, runner Runner, logger *slog.Logger) cliEngine {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Command == "" {
		cfg.Command = string(p)
	}
	return cliEngine{provider: p, cfg: cfg, runner: runner, logger: logger.With("provider", string(p))}
}

// Provider implements Engine.
func (e *cliEngine) Provider() domain.ProviderKind { return e.provider }

// run executes one engine subprocess under the configured timeout. describe
// extracts an engine-specific failure message from the output, if any.
func (e *cliEngine) run(ctx context.Context, model string, cmd Command, describe func(*Output) string) (*Output, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	cmd.Name = e.cfg.Command
	cmd.Env = e.cfg.Env

	ctx, span := tracer.StartSpan(ctx, "engine."+string(e.provider), trace.WithAttributes(
		tracer.StringAttr("provider", string(e.provider)),
		tracer.StringAttr("model", model),
		tracer.StringAttr("workdir", cmd.Dir),
	))
	defer span.End()

	start := time.Now()
	out, err := e.runner.Run(ctx, cmd)
	elapsed := time.Since(start)
	if out == nil {
		out = &Output{}
	}

	if err != nil {
		var failure error
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			failure = domain.NewSubSystemError("engine", string(e.provider)+".Generate", domain.ErrTimeout,
				fmt.Sprintf("%s did not finish within %s", e.cfg.Command, e.cfg.Timeout))
		case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
			failure = domain.WrapOp(string(e.provider)+".Generate", context.Canceled)
		default:
			msg := describe(out)
			if msg == "" {
				msg = lastLine(out.Stderr)
			}
			if msg == "" {
				msg = err.Error()
			}
			failure = domain.NewSubSystemError("engine", string(e.provider)+".Generate", domain.ErrProviderError,
				fmt.Sprintf("%s exited with code %d: %s", e.cfg.Command, out.ExitCode, msg))
		}
		tracer.RecordError(span, failure)
		e.logger.Warn("engine call failed", "model", model, "elapsed", elapsed, "error", failure)
		return out, failure
	}

	tracer.SetOK(span)
	e.logger.Debug("engine call finished", "model", model, "elapsed", elapsed, "stdout_bytes", len(out.Stdout))
	return out, nil
}

// ignoreTemperature notes once per handle that the CLI has no sampling
// temperature setting, so req.Temperature cannot be honored.
func (e *cliEngine) ignoreTemperature(once *sync.Once, model string, req domain.GenerateRequest) {
	if req.Temperature == nil {
		return
	}
	once.Do(func() {
		e.logger.Debug("engine has no temperature setting, value ignored",
			"model", model, "temperature", *req.Temperature)
	})
}

// withSystemPrompt prepends system instructions for engines with no native
// system prompt flag.
func withSystemPrompt(system, prompt string) string {
	if strings.TrimSpace(system) == "" {
		return prompt
	}
	return "<system>\n" + system + "\n</system>\n\n" + prompt
}

// jsonObject returns stdout from the first line starting with '{'. Some
// engines print banner lines before their JSON result.
func jsonObject(stdout []byte) []byte {
	trimmed := bytes.TrimSpace(stdout)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		return trimmed
	}
	if i := bytes.Index(trimmed, []byte("\n{")); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func malformedOutput(p domain.ProviderKind, err error) error {
	return domain.NewSubSystemError("engine", string(p)+".Generate", domain.ErrProviderError,
		fmt.Sprintf("malformed output: %v", err))
}
