package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/usecase/invoke"
)

func agentRequest(req mcp.CallToolRequest) (invoke.Request, error) {
	agent, err := req.RequireString("agent")
	if err != nil {
		return invoke.Request{}, domain.NewDomainError("tool", domain.ErrInvalidInput, err.Error())
	}
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return invoke.Request{Agent: agent}, domain.NewDomainError("tool", domain.ErrInvalidInput, err.Error())
	}
	return invoke.Request{
		Agent:   agent,
		Prompt:  prompt,
		Cwd:     req.GetString("cwd", ""),
		Context: req.GetString("context", ""),
		Images:  req.GetStringSlice("images", nil),
	}, nil
}

func (s *Server) handleCallAgent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := agentRequest(req)
	if err != nil {
		return errorResult(errorBody{Agent: in.Agent}, err), nil
	}

	p, res, err := s.caller.Call(ctx, in)
	if err != nil {
		return errorResult(errorBody{Agent: in.Agent}, err), nil
	}
	return jsonResult(callBody{
		Agent:    p.Agent().DisplayName,
		Model:    res.Model,
		Response: res.Text,
		Usage:    res.Usage,
	}, false), nil
}

func (s *Server) handleStartTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := agentRequest(req)
	if err != nil {
		return errorResult(errorBody{Agent: in.Agent}, err), nil
	}

	info, p, err := s.starter.Start(ctx, in)
	if err != nil {
		return errorResult(errorBody{Agent: in.Agent}, err), nil
	}
	return jsonResult(startBody{
		TaskID:  info.ID,
		Agent:   p.Agent().DisplayName,
		Model:   p.ModelID(),
		Status:  "started",
		Message: "Task started in background. Use get_task_status or get_task_result to check progress.",
	}, false), nil
}

func (s *Server) handleTaskStatus(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("task_id")
	if err != nil {
		return errorResult(errorBody{}, domain.NewDomainError("tool", domain.ErrInvalidInput, err.Error())), nil
	}
	info, err := s.store.Get(id)
	if err != nil {
		return taskLookupError(id, err), nil
	}
	return jsonResult(statusBody{
		TaskID:      info.ID,
		Agent:       info.Agent,
		Status:      info.Status,
		CreatedAt:   isoTime(info.CreatedAt),
		StartedAt:   isoTimePtr(info.StartedAt),
		CompletedAt: isoTimePtr(info.CompletedAt),
		HasResult:   info.Result != nil,
		HasError:    info.Error != "",
	}, false), nil
}

func (s *Server) handleTaskResult(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("task_id")
	if err != nil {
		return errorResult(errorBody{}, domain.NewDomainError("tool", domain.ErrInvalidInput, err.Error())), nil
	}

	var (
		info     *domain.TaskInfo
		timedOut bool
	)
	if req.GetBool("block", false) {
		timeout := s.tasks.WaitTimeout
		if ms := req.GetFloat("timeout_ms", 0); ms > 0 {
			timeout = time.Duration(ms * float64(time.Millisecond))
		}
		info, timedOut, err = s.store.Wait(ctx, id, timeout, s.tasks.PollInterval)
	} else {
		info, err = s.store.Get(id)
	}
	if err != nil {
		return taskLookupError(id, err), nil
	}

	switch info.Status {
	case domain.TaskCompleted:
		return jsonResult(completedResultBody{
			TaskID:    info.ID,
			Agent:     info.Agent,
			Status:    info.Status,
			Result:    info.Result,
			ElapsedMS: info.CompletedAt.Sub(info.CreatedAt).Milliseconds(),
		}, false), nil
	case domain.TaskFailed:
		return jsonResult(failedResultBody{
			TaskID: info.ID,
			Agent:  info.Agent,
			Status: info.Status,
			Error:  info.Error,
		}, true), nil
	default:
		msg := "Task is still running. Try again later."
		if timedOut {
			msg = "Wait timed out; the task is still running. Try again later."
		}
		return jsonResult(pendingResultBody{
			TaskID:    info.ID,
			Status:    info.Status,
			ElapsedMS: s.now().Sub(info.CreatedAt).Milliseconds(),
			TimedOut:  timedOut,
			Message:   msg,
		}, false), nil
	}
}

func (s *Server) handleListTasks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := domain.TaskStatus(req.GetString("status", ""))

	tasks := s.store.List()
	out := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		if filter != "" && t.Status != filter {
			continue
		}
		out = append(out, taskSummary{
			TaskID:        t.ID,
			Agent:         t.Agent,
			Status:        t.Status,
			CreatedAt:     isoTime(t.CreatedAt),
			PromptPreview: preview(t.Prompt, s.tasks.PreviewChars),
		})
	}
	return jsonResult(listTasksBody{Tasks: out, Count: len(out)}, false), nil
}

func (s *Server) handleListAgents(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agents := s.catalog.List()
	out := make([]agentSummary, 0, len(agents))
	for _, a := range agents {
		out = append(out, agentSummary{
			Name:        a.Name,
			DisplayName: a.DisplayName,
			Description: a.Description,
			Model:       a.Model,
			Temperature: a.Temperature,
			Policy:      a.Policy.String(),
			Enabled:     a.Enabled,
		})
	}
	return jsonResult(listAgentsBody{Agents: out, Count: len(out)}, false), nil
}

func invalidArg(format string, args ...any) error {
	return domain.NewDomainError("tool", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}
