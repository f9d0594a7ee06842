package invoke

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/tracer"
)

// FinishStop is the normalized finish reason for a clean completion.
const FinishStop = "stop"

// contextDelimiter separates the caller's instruction from supplementary material.
const contextDelimiter = "\n\n---\nContext:\n"

// Adapter runs one prepared invocation against its resolved handle and
// normalizes the outcome. It implements domain.Invoker.
type Adapter struct {
	logger *slog.Logger
}

// NewAdapter creates an invocation adapter.
func NewAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// BuildUserPrompt appends an optional context block to prompt.
func BuildUserPrompt(prompt, extra string) string {
	if extra == "" {
		return prompt
	}
	return prompt + contextDelimiter + extra
}

// Invoke implements domain.Invoker. Tool use is always suppressed: agents
// here are prompt-only.
func (a *Adapter) Invoke(ctx context.Context, inv domain.Invocation) (*domain.InvocationResult, error) {
	modelID := domain.ModelRef{Provider: inv.Handle.Provider(), Model: inv.Handle.Model()}.ID()

	ctx, span := tracer.StartSpan(ctx, "agent.invoke", trace.WithAttributes(
		tracer.StringAttr("agent", inv.Agent.Name),
		tracer.StringAttr("provider", string(inv.Handle.Provider())),
		tracer.StringAttr("model", inv.Handle.Model()),
	))
	defer span.End()

	gen, err := inv.Handle.Generate(ctx, domain.GenerateRequest{
		SystemPrompt:  inv.Agent.SystemPrompt,
		Prompt:        BuildUserPrompt(inv.Prompt, inv.Context),
		Temperature:   inv.Agent.Temperature,
		SuppressTools: true,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if err := checkGeneration(gen); err != nil {
		tracer.RecordError(span, err)
		a.logger.Warn("agent returned no text", "agent", inv.Agent.Name, "model", modelID, "error", err)
		return nil, err
	}

	span.SetAttributes(
		tracer.IntAttr("usage.input_tokens", gen.Usage.InputTokens),
		tracer.IntAttr("usage.output_tokens", gen.Usage.OutputTokens),
	)
	tracer.SetOK(span)
	return &domain.InvocationResult{Text: gen.Text, Model: modelID, Usage: gen.Usage}, nil
}

// checkGeneration accepts non-empty text, or empty text with a clean stop.
func checkGeneration(gen *domain.Generation) error {
	if gen == nil {
		return domain.NewSubSystemError("invoke", "Adapter.Invoke", domain.ErrEmptyResponse, "no generation")
	}
	if gen.Text != "" || strings.EqualFold(gen.FinishReason, FinishStop) {
		return nil
	}
	return domain.NewSubSystemError("invoke", "Adapter.Invoke", domain.ErrEmptyResponse,
		fmt.Sprintf("finishReason: %s, rawFinishReason: %s", orUnknown(gen.FinishReason), orUnknown(gen.RawFinishReason)))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

var _ domain.Invoker = (*Adapter)(nil)
