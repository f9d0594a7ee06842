package mcpserver

import (
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"multiagent-mcp/internal/domain"
)

// isoMillis matches JavaScript's Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z"

func isoTime(t time.Time) string { return t.UTC().Format(isoMillis) }

func isoTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := isoTime(*t)
	return &s
}

// errorBody is the payload of every failed tool call.
type errorBody struct {
	TaskID string           `json:"task_id,omitempty"`
	Agent  string           `json:"agent,omitempty"`
	Status string           `json:"status,omitempty"`
	Error  string           `json:"error"`
	Code   domain.ErrorCode `json:"code"`
}

type callBody struct {
	Agent    string       `json:"agent"`
	Model    string       `json:"model"`
	Response string       `json:"response"`
	Usage    domain.Usage `json:"usage"`
}

type startBody struct {
	TaskID  string `json:"task_id"`
	Agent   string `json:"agent"`
	Model   string `json:"model"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusBody struct {
	TaskID      string            `json:"task_id"`
	Agent       string            `json:"agent"`
	Status      domain.TaskStatus `json:"status"`
	CreatedAt   string            `json:"created_at"`
	StartedAt   *string           `json:"started_at"`
	CompletedAt *string           `json:"completed_at"`
	HasResult   bool              `json:"has_result"`
	HasError    bool              `json:"has_error"`
}

type pendingResultBody struct {
	TaskID    string            `json:"task_id"`
	Status    domain.TaskStatus `json:"status"`
	ElapsedMS int64             `json:"elapsed_ms"`
	TimedOut  bool              `json:"timed_out,omitempty"`
	Message   string            `json:"message"`
}

type completedResultBody struct {
	TaskID    string             `json:"task_id"`
	Agent     string             `json:"agent"`
	Status    domain.TaskStatus  `json:"status"`
	Result    *domain.TaskResult `json:"result"`
	ElapsedMS int64              `json:"elapsed_ms"`
}

type failedResultBody struct {
	TaskID string            `json:"task_id"`
	Agent  string            `json:"agent"`
	Status domain.TaskStatus `json:"status"`
	Error  string            `json:"error"`
}

type taskSummary struct {
	TaskID        string            `json:"task_id"`
	Agent         string            `json:"agent"`
	Status        domain.TaskStatus `json:"status"`
	CreatedAt     string            `json:"created_at"`
	PromptPreview string            `json:"prompt_preview"`
}

type listTasksBody struct {
	Tasks []taskSummary `json:"tasks"`
	Count int           `json:"count"`
}

type batchItem struct {
	Index    int              `json:"index"`
	Agent    string           `json:"agent"`
	Model    string           `json:"model,omitempty"`
	Response *string          `json:"response,omitempty"`
	Usage    *domain.Usage    `json:"usage,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     domain.ErrorCode `json:"code,omitempty"`
}

type batchBody struct {
	Results   []batchItem `json:"results"`
	Count     int         `json:"count"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

type agentSummary struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
	Policy      string   `json:"policy"`
	Enabled     bool     `json:"enabled"`
}

type listAgentsBody struct {
	Agents []agentSummary `json:"agents"`
	Count  int            `json:"count"`
}

// jsonResult renders v as the single text content of a tool result.
func jsonResult(v any, isError bool) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(errorBody{Error: "encode result: " + err.Error(), Code: domain.CodeUnknown})
		isError = true
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: isError,
	}
}

func errorResult(body errorBody, err error) *mcp.CallToolResult {
	body.Error = err.Error()
	body.Code = domain.ErrorCodeOf(err)
	return jsonResult(body, true)
}

// taskLookupError keeps "not found" distinct from "still running".
func taskLookupError(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, domain.ErrNotFound) {
		return jsonResult(errorBody{TaskID: id, Error: "Task not found", Code: domain.CodeTaskNotFound}, true)
	}
	return errorResult(errorBody{TaskID: id}, err)
}

// preview truncates s to n runes, marking the cut with an ellipsis.
func preview(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
