package invoke

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"multiagent-mcp/internal/domain"
)

// Request is one agent call as received from a tool.
type Request struct {
	Agent   string
	Prompt  string
	Cwd     string
	Context string
	Images  []string
}

// Prepared is a request that passed every configuration check. Running it
// can only fail with an execution error.
type Prepared struct {
	inv    domain.Invocation
	images []image
}

// Agent returns the agent the call is bound to.
func (p *Prepared) Agent() domain.AgentConfig { return p.inv.Agent }

// ModelID returns the resolved provider/model.
func (p *Prepared) ModelID() string {
	return domain.ModelRef{Provider: p.inv.Handle.Provider(), Model: p.inv.Handle.Model()}.ID()
}

// WorkDir returns the directory the engine will run in.
func (p *Prepared) WorkDir() string { return p.inv.WorkDir }

// Caller prepares and runs agent calls. Sync calls, background tasks and
// batches all go through it.
type Caller struct {
	catalog    domain.AgentCatalog
	resolver   domain.ModelResolver
	invoker    domain.Invoker
	defaultCwd string
	logger     *slog.Logger
}

// NewCaller creates a caller. An empty defaultCwd falls back to the process
// working directory.
func NewCaller(catalog domain.AgentCatalog, resolver domain.ModelResolver, invoker domain.Invoker, defaultCwd string, logger *slog.Logger) *Caller {
	return &Caller{
		catalog:    catalog,
		resolver:   resolver,
		invoker:    invoker,
		defaultCwd: defaultCwd,
		logger:     logger,
	}
}

// Prepare looks up the agent, checks it is enabled, decodes images and
// resolves the model. No engine is started.
func (c *Caller) Prepare(req Request) (*Prepared, error) {
	if req.Prompt == "" {
		return nil, domain.NewDomainError("Caller.Prepare", domain.ErrInvalidInput, "prompt is required")
	}
	agent, err := c.catalog.Get(req.Agent)
	if err != nil {
		return nil, err
	}
	if !agent.Enabled {
		return nil, domain.NewSubSystemError("agent", "Caller.Prepare", domain.ErrDisabled,
			fmt.Sprintf("agent %q is disabled", agent.Name))
	}

	images, err := decodeImages(req.Images)
	if err != nil {
		return nil, err
	}

	workDir, err := c.workDir(req.Cwd)
	if err != nil {
		return nil, err
	}

	handle, err := c.resolver.Resolve(agent.Model, agent.Policy, workDir)
	if err != nil {
		return nil, err
	}

	return &Prepared{
		inv: domain.Invocation{
			Agent:   agent,
			Handle:  handle,
			Prompt:  req.Prompt,
			Context: req.Context,
			WorkDir: workDir,
		},
		images: images,
	}, nil
}

// Run executes a prepared call. Images live in a temp directory for the
// duration of the call only.
func (c *Caller) Run(ctx context.Context, p *Prepared) (*domain.InvocationResult, error) {
	inv := p.inv
	paths, cleanup, err := writeImages(p.images)
	if err != nil {
		return nil, domain.WrapOp("Caller.Run", err)
	}
	defer cleanup()
	inv.Context = withImagePaths(inv.Context, paths)

	start := time.Now()
	res, err := c.invoker.Invoke(ctx, inv)
	if err != nil {
		c.logger.Info("agent call failed", "agent", inv.Agent.Name, "model", p.ModelID(),
			"elapsed", time.Since(start), "error", err)
		return nil, err
	}
	c.logger.Info("agent call finished", "agent", inv.Agent.Name, "model", res.Model,
		"elapsed", time.Since(start),
		"input_tokens", res.Usage.InputTokens, "output_tokens", res.Usage.OutputTokens)
	return res, nil
}

// Call prepares and runs req in one step.
func (c *Caller) Call(ctx context.Context, req Request) (*Prepared, *domain.InvocationResult, error) {
	p, err := c.Prepare(req)
	if err != nil {
		return nil, nil, err
	}
	res, err := c.Run(ctx, p)
	return p, res, err
}

func (c *Caller) workDir(cwd string) (string, error) {
	if cwd != "" {
		return cwd, nil
	}
	if c.defaultCwd != "" {
		return c.defaultCwd, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", domain.WrapOp("Caller.workDir", err)
	}
	return wd, nil
}
