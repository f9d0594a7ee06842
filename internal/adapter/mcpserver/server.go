package mcpserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/config"
	"multiagent-mcp/internal/usecase/invoke"
)

// AgentCaller runs one agent call to completion.
type AgentCaller interface {
	Call(ctx context.Context, req invoke.Request) (*invoke.Prepared, *domain.InvocationResult, error)
}

// TaskStarter starts an agent call in the background.
type TaskStarter interface {
	Start(ctx context.Context, req invoke.Request) (*domain.TaskInfo, *invoke.Prepared, error)
}

// TaskStore is the read side of the task registry.
type TaskStore interface {
	Get(id string) (*domain.TaskInfo, error)
	List() []*domain.TaskInfo
	Wait(ctx context.Context, id string, timeout, poll time.Duration) (*domain.TaskInfo, bool, error)
}

// Deps are the collaborators behind the tools.
type Deps struct {
	Catalog domain.AgentCatalog
	Caller  AgentCaller
	Starter TaskStarter
	Store   TaskStore
	Logger  *slog.Logger
}

// Server exposes the agent roster and the task registry as MCP tools.
type Server struct {
	mcp     *server.MCPServer
	catalog domain.AgentCatalog
	caller  AgentCaller
	starter TaskStarter
	store   TaskStore
	tasks   config.TasksConfig
	batch   config.BatchConfig
	logger  *slog.Logger
	now     func() time.Time
}

// New builds the MCP server and registers every tool.
func New(cfg *config.Config, deps Deps) *Server {
	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	}
	if cfg.Server.Instructions != "" {
		opts = append(opts, server.WithInstructions(cfg.Server.Instructions))
	} else {
		opts = append(opts, server.WithInstructions(defaultInstructions))
	}

	s := &Server{
		mcp:     server.NewMCPServer(cfg.Server.Name, cfg.Server.Version, opts...),
		catalog: deps.Catalog,
		caller:  deps.Caller,
		starter: deps.Starter,
		store:   deps.Store,
		tasks:   cfg.Tasks,
		batch:   cfg.Batch,
		logger:  deps.Logger,
		now:     time.Now,
	}
	s.registerTools()
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

const defaultInstructions = `Agent calls take 30-120 seconds. Prefer start_task (or call_agent_async) and poll with get_task_status / get_task_result; use call_agent only when you must wait. call_agents_batch runs several agents at once and returns when the slowest finishes.`
