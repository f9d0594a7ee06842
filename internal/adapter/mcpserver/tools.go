package mcpserver

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names.
const (
	ToolCallAgent      = "call_agent"
	ToolStartTask      = "start_task"
	ToolCallAgentAsync = "call_agent_async"
	ToolTaskStatus     = "get_task_status"
	ToolTaskResult     = "get_task_result"
	ToolAgentResult    = "get_agent_result"
	ToolListTasks      = "list_tasks"
	ToolBatch          = "call_agents_batch"
	ToolListAgents     = "list_agents"
)

func readOnlyTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}))
	return mcp.NewTool(name, opts...)
}

// agentTool is for tools that run an agent. Agents may touch the
// workspace unless their policy forbids it.
func agentTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(false),
		DestructiveHint: mcp.ToBoolPtr(false),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}))
	return mcp.NewTool(name, opts...)
}

func (s *Server) registerTools() {
	names := s.catalog.Names()

	callOpts := func(description string) []mcp.ToolOption {
		return []mcp.ToolOption{
			mcp.WithDescription(description),
			mcp.WithString("agent",
				mcp.Description("The agent to use: "+strings.Join(names, " | ")),
				mcp.Enum(names...),
				mcp.Required(),
			),
			mcp.WithString("prompt",
				mcp.Description("The prompt/task for the agent"),
				mcp.Required(),
			),
			mcp.WithString("cwd",
				mcp.Description("Working directory for the agent (defaults to the server's working directory)"),
			),
			mcp.WithString("context",
				mcp.Description("Additional context or file paths"),
			),
			mcp.WithArray("images",
				mcp.Description("Base64 encoded images or data: URLs (for multimodal-looker)"),
				mcp.WithStringItems(),
			),
		}
	}

	s.mcp.AddTool(agentTool(ToolCallAgent, callOpts(s.callAgentDescription())...), s.handleCallAgent)

	startDesc := "Start an agent in the background and return a task_id immediately. " +
		"Poll with get_task_status, fetch the outcome with get_task_result."
	s.mcp.AddTool(agentTool(ToolStartTask, callOpts(startDesc)...), s.handleStartTask)
	s.mcp.AddTool(agentTool(ToolCallAgentAsync, callOpts("Alias of start_task. "+startDesc)...), s.handleStartTask)

	s.mcp.AddTool(readOnlyTool(ToolTaskStatus,
		mcp.WithDescription("Get the status of a background task. Returns status (pending/running/completed/failed) and timestamps, never the result itself."),
		mcp.WithString("task_id",
			mcp.Description("The task ID returned by start_task"),
			mcp.Required(),
		),
	), s.handleTaskStatus)

	resultOpts := func(description string) []mcp.ToolOption {
		return []mcp.ToolOption{
			mcp.WithDescription(description),
			mcp.WithString("task_id",
				mcp.Description("The task ID returned by start_task"),
				mcp.Required(),
			),
			mcp.WithBoolean("block",
				mcp.Description("Wait until the task finishes or timeout_ms elapses (default false)"),
			),
			mcp.WithNumber("timeout_ms",
				mcp.Description(fmt.Sprintf("Maximum wait when block is true (default %d)", s.tasks.WaitTimeout.Milliseconds())),
			),
		}
	}
	resultDesc := "Get the result of a background task: response text, model and token usage once completed, " +
		"the error once failed, elapsed time while still running. A blocking wait that times out returns the current state."
	s.mcp.AddTool(readOnlyTool(ToolTaskResult, resultOpts(resultDesc)...), s.handleTaskResult)
	s.mcp.AddTool(readOnlyTool(ToolAgentResult, resultOpts("Alias of get_task_result. "+resultDesc)...), s.handleTaskResult)

	s.mcp.AddTool(readOnlyTool(ToolListTasks,
		mcp.WithDescription("List background tasks, newest first, with a short prompt preview."),
		mcp.WithString("status",
			mcp.Description("Only list tasks in this status"),
			mcp.Enum("pending", "running", "completed", "failed"),
		),
	), s.handleListTasks)

	s.mcp.AddTool(agentTool(ToolBatch,
		mcp.WithDescription(fmt.Sprintf("Run up to %d agent calls in parallel and return every result together. "+
			"Blocks until the slowest call finishes; prefer start_task for long work. "+
			"Each call succeeds or fails on its own.", s.batch.MaxCalls)),
		mcp.WithString("cwd",
			mcp.Description("Working directory shared by every call"),
		),
		mcp.WithArray("calls",
			mcp.Description("Calls to run"),
			mcp.Required(),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"agent":   map[string]any{"type": "string", "enum": names},
					"prompt":  map[string]any{"type": "string"},
					"context": map[string]any{"type": "string"},
				},
				"required": []string{"agent", "prompt"},
			}),
		),
	), s.handleBatch)

	s.mcp.AddTool(readOnlyTool(ToolListAgents,
		mcp.WithDescription("List the available agents with their model and access policy."),
	), s.handleListAgents)
}

func (s *Server) callAgentDescription() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Multi-agent tool with %d specialized AI agents.\n\n", len(s.catalog.Names()))
	b.WriteString("This call blocks for the whole agent run (often 30-120 seconds). Prefer start_task for anything long.\n\n")
	b.WriteString("| Agent | Use When |\n|-------|----------|\n")
	for _, a := range s.catalog.List() {
		if !a.Enabled {
			continue
		}
		fmt.Fprintf(&b, "| **%s** | %s |\n", a.Name, a.Description)
	}
	return b.String()
}
