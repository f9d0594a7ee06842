package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/config"
)

// Gemini runs `gemini --output-format json`.
type Gemini struct {
	cliEngine
}

// NewGemini creates the gemini engine.
func NewGemini(cfg config.EngineConfig, runner Runner, logger *slog.Logger) *Gemini {
	return &Gemini{cliEngine: newCLIEngine(domain.ProviderGemini, cfg, runner, logger)}
}

// Handle implements Engine.
func (e *Gemini) Handle(model string, policy domain.AccessPolicy, workDir string) domain.ModelHandle {
	return &geminiHandle{engine: e, model: model, approval: GeminiApprovalMode(policy), workDir: workDir}
}

type geminiHandle struct {
	engine   *Gemini
	model    string
	approval string
	workDir  string

	tempOnce sync.Once
}

func (h *geminiHandle) Provider() domain.ProviderKind { return domain.ProviderGemini }
func (h *geminiHandle) Model() string                 { return h.model }

// Generate implements domain.ModelHandle.
func (h *geminiHandle) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.Generation, error) {
	h.engine.ignoreTemperature(&h.tempOnce, h.model, req)

	args := []string{
		"--output-format", "json",
		"--model", h.model,
		"--approval-mode", h.approval,
	}
	if req.SuppressTools {
		args = append(args, "--extensions", "none")
	}
	args = append(args, h.engine.cfg.ExtraArgs...)

	cmd := Command{
		Args:  args,
		Dir:   h.workDir,
		Stdin: withSystemPrompt(req.SystemPrompt, req.Prompt),
	}
	out, err := h.engine.run(ctx, h.model, cmd, func(o *Output) string {
		if r, err := parseGeminiOutput(o.Stdout); err == nil && r.Error != nil {
			return r.Error.Message
		}
		return ""
	})
	if err != nil {
		return nil, err
	}

	r, err := parseGeminiOutput(out.Stdout)
	if err != nil {
		return nil, malformedOutput(domain.ProviderGemini, err)
	}
	if r.Error != nil {
		return nil, domain.NewSubSystemError("engine", "gemini.Generate", domain.ErrProviderError, r.Error.Message)
	}

	var usage domain.Usage
	for _, m := range r.Stats.Models {
		usage.InputTokens += m.Tokens.Prompt.Int()
		usage.OutputTokens += m.Tokens.Candidates.Int()
	}
	return &domain.Generation{
		Text:            r.Response,
		FinishReason:    "stop",
		RawFinishReason: "stop",
		Usage:           usage,
	}, nil
}

type geminiOutput struct {
	Response string `json:"response"`
	Stats    struct {
		Models map[string]struct {
			Tokens struct {
				Prompt     domain.TokenCount `json:"prompt"`
				Candidates domain.TokenCount `json:"candidates"`
			} `json:"tokens"`
		} `json:"models"`
	} `json:"stats"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseGeminiOutput(stdout []byte) (*geminiOutput, error) {
	var r geminiOutput
	if err := json.Unmarshal(jsonObject(stdout), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
