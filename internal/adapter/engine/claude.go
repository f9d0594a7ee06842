package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/config"
)

// claudeSettingSources are the settings layers the claude CLI loads.
const claudeSettingSources = "user,project,local"

// Claude runs `claude -p --output-format json`.
type Claude struct {
	cliEngine
}

// NewClaude creates the claude engine.
func NewClaude(cfg config.EngineConfig, runner Runner, logger *slog.Logger) *Claude {
	return &Claude{cliEngine: newCLIEngine(domain.ProviderClaude, cfg, runner, logger)}
}

// Handle implements Engine.
func (e *Claude) Handle(model string, policy domain.AccessPolicy, workDir string) domain.ModelHandle {
	return &claudeHandle{engine: e, model: model, disallowed: ClaudeDisallowedTools(policy), workDir: workDir}
}

type claudeHandle struct {
	engine     *Claude
	model      string
	disallowed []string
	workDir    string

	tempOnce sync.Once
}

func (h *claudeHandle) Provider() domain.ProviderKind { return domain.ProviderClaude }
func (h *claudeHandle) Model() string                 { return h.model }

// Generate implements domain.ModelHandle. Tool suppression drops MCP servers
// and caps the session at a single turn.
func (h *claudeHandle) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.Generation, error) {
	h.engine.ignoreTemperature(&h.tempOnce, h.model, req)

	args := []string{
		"-p",
		"--output-format", "json",
		"--model", h.model,
		"--setting-sources", claudeSettingSources,
	}
	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}
	if len(h.disallowed) > 0 {
		args = append(args, "--disallowedTools", strings.Join(h.disallowed, ","))
	}
	if req.SuppressTools {
		args = append(args, "--strict-mcp-config", "--max-turns", "1")
	}
	args = append(args, h.engine.cfg.ExtraArgs...)

	cmd := Command{Args: args, Dir: h.workDir, Stdin: req.Prompt}
	out, err := h.engine.run(ctx, h.model, cmd, func(o *Output) string {
		if r, err := parseClaudeResult(o.Stdout); err == nil && r.IsError {
			return r.Result
		}
		return ""
	})
	if err != nil {
		return nil, err
	}

	r, err := parseClaudeResult(out.Stdout)
	if err != nil {
		return nil, malformedOutput(domain.ProviderClaude, err)
	}
	if r.IsError && r.Subtype == "success" {
		return nil, domain.NewSubSystemError("engine", "claude.Generate", domain.ErrProviderError, r.Result)
	}

	gen := &domain.Generation{
		Text:            r.Result,
		FinishReason:    r.Subtype,
		RawFinishReason: r.StopReason,
		Usage: domain.Usage{
			InputTokens:  r.Usage.InputTokens.Int(),
			OutputTokens: r.Usage.OutputTokens.Int(),
		},
	}
	if r.Subtype == "success" && !r.IsError {
		gen.FinishReason = "stop"
	}
	if gen.RawFinishReason == "" {
		gen.RawFinishReason = r.Subtype
	}
	return gen, nil
}

type claudeResult struct {
	Type       string `json:"type"`
	Subtype    string `json:"subtype"`
	IsError    bool   `json:"is_error"`
	Result     string `json:"result"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  domain.TokenCount `json:"input_tokens"`
		OutputTokens domain.TokenCount `json:"output_tokens"`
	} `json:"usage"`
}

func parseClaudeResult(stdout []byte) (*claudeResult, error) {
	var r claudeResult
	if err := json.Unmarshal(jsonObject(stdout), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
