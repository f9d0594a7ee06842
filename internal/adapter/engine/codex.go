package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/config"
)

// codexNoMCPServers clears the user's configured MCP servers for one run.
const codexNoMCPServers = "mcp_servers={}"

// Codex runs `codex exec --json` and reads its JSONL event stream.
type Codex struct {
	cliEngine
}

// NewCodex creates the codex engine.
func NewCodex(cfg config.EngineConfig, runner Runner, logger *slog.Logger) *Codex {
	return &Codex{cliEngine: newCLIEngine(domain.ProviderCodex, cfg, runner, logger)}
}

// Handle implements Engine.
func (e *Codex) Handle(model string, policy domain.AccessPolicy, workDir string) domain.ModelHandle {
	return &codexHandle{engine: e, model: model, sandbox: CodexSandboxMode(policy), workDir: workDir}
}

type codexHandle struct {
	engine  *Codex
	model   string
	sandbox string
	workDir string

	tempOnce sync.Once
}

func (h *codexHandle) Provider() domain.ProviderKind { return domain.ProviderCodex }
func (h *codexHandle) Model() string                 { return h.model }

// Generate implements domain.ModelHandle. Codex has no system prompt flag,
// so the system prompt is folded into stdin. Tool suppression drops MCP
// servers; the built-in shell stays under the sandbox mode.
func (h *codexHandle) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.Generation, error) {
	h.engine.ignoreTemperature(&h.tempOnce, h.model, req)

	args := []string{
		"exec", "--json",
		"--model", h.model,
		"--sandbox", h.sandbox,
		"--skip-git-repo-check",
		"-c", `approval_policy="` + CodexApprovalNever + `"`,
	}
	if req.SuppressTools {
		args = append(args, "-c", codexNoMCPServers)
	}
	if h.workDir != "" {
		args = append(args, "--cd", h.workDir)
	}
	args = append(args, h.engine.cfg.ExtraArgs...)
	args = append(args, "-")

	cmd := Command{
		Args:  args,
		Dir:   h.workDir,
		Stdin: withSystemPrompt(req.SystemPrompt, req.Prompt),
	}
	out, err := h.engine.run(ctx, h.model, cmd, func(o *Output) string {
		return parseCodexEvents(o.Stdout).errMsg
	})
	if err != nil {
		return nil, err
	}

	res := parseCodexEvents(out.Stdout)
	if res.errMsg != "" {
		return nil, domain.NewSubSystemError("engine", "codex.Generate", domain.ErrProviderError, res.errMsg)
	}
	return &domain.Generation{
		Text:            res.text,
		FinishReason:    res.finish,
		RawFinishReason: res.raw,
		Usage:           res.usage,
	}, nil
}

type codexEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Item    *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"item"`
	Usage *struct {
		InputTokens  domain.TokenCount `json:"input_tokens"`
		OutputTokens domain.TokenCount `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type codexResult struct {
	text   string
	finish string
	raw    string
	usage  domain.Usage
	errMsg string
}

// parseCodexEvents folds the JSONL stream into one result. The last agent
// message wins; non-JSON lines are skipped.
func parseCodexEvents(stdout []byte) codexResult {
	var res codexResult
	sc := bufio.NewScanner(bytes.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var ev codexEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		res.raw = ev.Type
		switch ev.Type {
		case "item.completed":
			if ev.Item != nil && ev.Item.Type == "agent_message" {
				res.text = ev.Item.Text
			}
		case "turn.completed":
			res.finish = "stop"
			if ev.Usage != nil {
				res.usage = domain.Usage{
					InputTokens:  ev.Usage.InputTokens.Int(),
					OutputTokens: ev.Usage.OutputTokens.Int(),
				}
			}
		case "turn.failed":
			res.finish = "error"
			if ev.Error != nil {
				res.errMsg = ev.Error.Message
			}
		case "error":
			res.finish = "error"
			res.errMsg = ev.Message
		}
	}
	return res
}
