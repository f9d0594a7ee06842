package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/usecase/invoke"
)

// batchCalls reads and bounds the calls argument.
func (s *Server) batchCalls(req mcp.CallToolRequest) ([]invoke.Request, error) {
	raw, ok := req.GetArguments()["calls"].([]any)
	if !ok {
		return nil, invalidArg("calls must be an array")
	}
	if len(raw) == 0 {
		return nil, invalidArg("calls must not be empty")
	}
	if len(raw) > s.batch.MaxCalls {
		return nil, domain.NewSubSystemError("batch", "call_agents_batch", domain.ErrLimitReached,
			fmt.Sprintf("%d calls requested, at most %d allowed", len(raw), s.batch.MaxCalls))
	}

	cwd := req.GetString("cwd", "")
	out := make([]invoke.Request, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, invalidArg("calls[%d] must be an object", i)
		}
		agent, _ := m["agent"].(string)
		prompt, _ := m["prompt"].(string)
		if agent == "" || prompt == "" {
			return nil, invalidArg("calls[%d] needs agent and prompt", i)
		}
		extra, _ := m["context"].(string)
		out = append(out, invoke.Request{Agent: agent, Prompt: prompt, Context: extra, Cwd: cwd})
	}
	return out, nil
}

func (s *Server) handleBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	calls, err := s.batchCalls(req)
	if err != nil {
		return errorResult(errorBody{}, err), nil
	}

	results := make([]batchItem, len(calls))
	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			results[i] = s.runBatchItem(ctx, i, call)
			return nil // failures are reported per call
		})
	}
	_ = g.Wait()

	body := batchBody{Results: results, Count: len(results)}
	for _, r := range results {
		if r.Error == "" {
			body.Succeeded++
		} else {
			body.Failed++
		}
	}
	s.logger.Info("batch finished", "calls", body.Count, "succeeded", body.Succeeded, "failed", body.Failed)
	return jsonResult(body, false), nil
}

func (s *Server) runBatchItem(ctx context.Context, i int, call invoke.Request) batchItem {
	item := batchItem{Index: i, Agent: call.Agent}
	p, res, err := s.caller.Call(ctx, call)
	if err != nil {
		item.Error = err.Error()
		item.Code = domain.ErrorCodeOf(err)
		return item
	}
	item.Agent = p.Agent().DisplayName
	item.Model = res.Model
	item.Response = &res.Text
	item.Usage = &res.Usage
	return item
}
