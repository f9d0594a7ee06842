package invoke

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/logger"
)

type fakeHandle struct {
	provider domain.ProviderKind
	model    string
	fn       func(domain.GenerateRequest) (*domain.Generation, error)
	got      []domain.GenerateRequest
}

func (h *fakeHandle) Provider() domain.ProviderKind { return h.provider }
func (h *fakeHandle) Model() string                 { return h.model }
func (h *fakeHandle) Generate(_ context.Context, req domain.GenerateRequest) (*domain.Generation, error) {
	h.got = append(h.got, req)
	return h.fn(req)
}

func replying(text, finish, raw string, usage domain.Usage) func(domain.GenerateRequest) (*domain.Generation, error) {
	return func(domain.GenerateRequest) (*domain.Generation, error) {
		return &domain.Generation{Text: text, FinishReason: finish, RawFinishReason: raw, Usage: usage}, nil
	}
}

type fakeCatalog map[string]domain.AgentConfig

func (c fakeCatalog) Get(name string) (domain.AgentConfig, error) {
	a, ok := c[name]
	if !ok {
		return domain.AgentConfig{}, domain.NewSubSystemError("agent", "fakeCatalog.Get", domain.ErrNotFound, name)
	}
	return a, nil
}
func (c fakeCatalog) List() []domain.AgentConfig { return nil }
func (c fakeCatalog) Names() []string            { return nil }

type fakeResolver struct {
	handle  *fakeHandle
	err     error
	workDir string
	policy  domain.AccessPolicy
	calls   int
}

func (r *fakeResolver) Resolve(_ string, policy domain.AccessPolicy, workDir string) (domain.ModelHandle, error) {
	r.calls++
	r.policy = policy
	r.workDir = workDir
	if r.err != nil {
		return nil, r.err
	}
	return r.handle, nil
}

func temp(v float64) *float64 { return &v }

func testAgent() domain.AgentConfig {
	return domain.AgentConfig{
		Name:         "oracle",
		DisplayName:  "Oracle",
		Model:        "codex/gpt-5.2",
		SystemPrompt: "be wise",
		Temperature:  temp(0.1),
		Policy:       domain.DenyList(domain.CapabilityWrite, domain.CapabilityEdit),
		Enabled:      true,
	}
}

func TestBuildUserPrompt(t *testing.T) {
	assert.Equal(t, "ping", BuildUserPrompt("ping", ""))
	assert.Equal(t, "ping\n\n---\nContext:\nsee main.go", BuildUserPrompt("ping", "see main.go"))
}

func TestAdapterInvokeSuccess(t *testing.T) {
	h := &fakeHandle{provider: domain.ProviderClaude, model: "haiku",
		fn: replying("pong", "stop", "end_turn", domain.Usage{InputTokens: 3, OutputTokens: 1})}
	a := NewAdapter(logger.Discard())

	res, err := a.Invoke(context.Background(), domain.Invocation{
		Agent: testAgent(), Handle: h, Prompt: "ping", Context: "ctx", WorkDir: "/tmp",
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", res.Text)
	assert.Equal(t, "claude/haiku", res.Model)
	assert.Equal(t, domain.Usage{InputTokens: 3, OutputTokens: 1}, res.Usage)

	require.Len(t, h.got, 1)
	req := h.got[0]
	assert.Equal(t, "be wise", req.SystemPrompt)
	assert.Equal(t, "ping\n\n---\nContext:\nctx", req.Prompt)
	assert.True(t, req.SuppressTools)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.1, *req.Temperature, 1e-9)
}

func TestAdapterEmptyResponse(t *testing.T) {
	tests := []struct {
		name    string
		finish  string
		raw     string
		wantErr string
	}{
		{name: "clean stop", finish: "stop", raw: "end_turn"},
		{name: "stop any case", finish: "STOP"},
		{name: "length", finish: "length", raw: "max_tokens", wantErr: "finishReason: length, rawFinishReason: max_tokens"},
		{name: "no signal", wantErr: "finishReason: unknown, rawFinishReason: unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHandle{provider: domain.ProviderCodex, model: "gpt-5.2", fn: replying("", tt.finish, tt.raw, domain.Usage{})}
			res, err := NewAdapter(logger.Discard()).Invoke(context.Background(), domain.Invocation{Agent: testAgent(), Handle: h, Prompt: "x"})
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "", res.Text)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrEmptyResponse)
			assert.Equal(t, domain.CodeEmptyResponse, domain.ErrorCodeOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdapterPropagatesEngineError(t *testing.T) {
	boom := domain.NewSubSystemError("engine", "codex.Generate", domain.ErrProviderError, "exit 1")
	h := &fakeHandle{provider: domain.ProviderCodex, model: "gpt-5.2",
		fn: func(domain.GenerateRequest) (*domain.Generation, error) { return nil, boom }}
	_, err := NewAdapter(logger.Discard()).Invoke(context.Background(), domain.Invocation{Agent: testAgent(), Handle: h, Prompt: "x"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, domain.CodeEngineFailure, domain.ErrorCodeOf(err))
}

func newTestCaller(catalog fakeCatalog, res *fakeResolver) *Caller {
	return NewCaller(catalog, res, NewAdapter(logger.Discard()), "/default", logger.Discard())
}

func TestCallerCall(t *testing.T) {
	h := &fakeHandle{provider: domain.ProviderCodex, model: "gpt-5.2",
		fn: replying("pong", "stop", "", domain.Usage{InputTokens: 3, OutputTokens: 1})}
	res := &fakeResolver{handle: h}
	c := newTestCaller(fakeCatalog{"oracle": testAgent()}, res)

	p, out, err := c.Call(context.Background(), Request{Agent: "oracle", Prompt: "ping", Cwd: "/tmp"})
	require.NoError(t, err)
	assert.Equal(t, "Oracle", p.Agent().DisplayName)
	assert.Equal(t, "codex/gpt-5.2", p.ModelID())
	assert.Equal(t, "/tmp", res.workDir)
	assert.Equal(t, "deny[write,edit]", res.policy.String())
	assert.Equal(t, "pong", out.Text)
}

func TestCallerDefaultWorkDir(t *testing.T) {
	res := &fakeResolver{handle: &fakeHandle{fn: replying("ok", "stop", "", domain.Usage{})}}
	c := newTestCaller(fakeCatalog{"oracle": testAgent()}, res)

	p, err := c.Prepare(Request{Agent: "oracle", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "/default", p.WorkDir())
}

func TestCallerPrepareFailures(t *testing.T) {
	disabled := testAgent()
	disabled.Enabled = false
	catalog := fakeCatalog{"oracle": testAgent(), "off": disabled}

	tests := []struct {
		name     string
		req      Request
		resolver *fakeResolver
		code     domain.ErrorCode
	}{
		{name: "unknown agent", req: Request{Agent: "nobody", Prompt: "x"}, code: domain.CodeAgentNotFound},
		{name: "disabled agent", req: Request{Agent: "off", Prompt: "x"}, code: domain.CodeAgentDisabled},
		{name: "empty prompt", req: Request{Agent: "oracle"}, code: domain.CodeInvalidInput},
		{name: "bad image", req: Request{Agent: "oracle", Prompt: "x", Images: []string{"%%%"}}, code: domain.CodeImageInvalid},
		{
			name:     "bad model",
			req:      Request{Agent: "oracle", Prompt: "x"},
			resolver: &fakeResolver{err: domain.NewSubSystemError("model", "ParseModelID", domain.ErrMisconfigured, "nope")},
			code:     domain.CodeModelIDInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.resolver
			if res == nil {
				res = &fakeResolver{handle: &fakeHandle{}}
			}
			_, err := newTestCaller(catalog, res).Prepare(tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, domain.ErrorCodeOf(err))
			assert.True(t, domain.IsConfigurationError(err))
		})
	}
}

func TestCallerImagesLiveForCallOnly(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	var seen string
	h := &fakeHandle{provider: domain.ProviderClaude, model: "sonnet", fn: func(req domain.GenerateRequest) (*domain.Generation, error) {
		lines := strings.Split(req.Prompt, "\n")
		seen = strings.TrimPrefix(lines[len(lines)-1], "- ")
		if _, err := os.Stat(seen); err != nil {
			return nil, err
		}
		return &domain.Generation{Text: "a chart", FinishReason: "stop"}, nil
	}}
	c := newTestCaller(fakeCatalog{"oracle": testAgent()}, &fakeResolver{handle: h})

	_, out, err := c.Call(context.Background(), Request{
		Agent:   "oracle",
		Prompt:  "describe",
		Context: "from the report",
		Images:  []string{"data:image/png;base64," + base64.StdEncoding.EncodeToString(png)},
	})
	require.NoError(t, err)
	assert.Equal(t, "a chart", out.Text)
	assert.True(t, strings.HasSuffix(seen, "image-1.png"), seen)
	assert.Contains(t, h.got[0].Prompt, "Context:\nfrom the report\n\nAttached images:\n- ")

	_, statErr := os.Stat(seen)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "image dir must be removed after the call")
}

func TestDecodeImage(t *testing.T) {
	jpeg := append([]byte{0xFF, 0xD8, 0xFF}, make([]byte, 16)...)
	img, err := decodeImage(base64.StdEncoding.EncodeToString(jpeg))
	require.NoError(t, err)
	assert.Equal(t, ".jpg", img.ext)

	img, err = decodeImage(base64.RawStdEncoding.EncodeToString([]byte("plain bytes!")))
	require.NoError(t, err)
	assert.Equal(t, ".bin", img.ext)

	_, err = decodeImage("data:image/png,notbase64")
	assert.Error(t, err)
	_, err = decodeImage("   ")
	assert.Error(t, err)
}
