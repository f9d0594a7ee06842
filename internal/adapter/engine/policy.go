package engine

import (
	"strings"

	"multiagent-mcp/internal/domain"
)

// Codex sandbox modes.
const (
	CodexSandboxReadOnly       = "read-only"
	CodexSandboxWorkspaceWrite = "workspace-write"

	// CodexApprovalNever keeps codex non-interactive.
	CodexApprovalNever = "never"
)

// Gemini approval modes.
const (
	GeminiApprovalDefault = "default"
	GeminiApprovalYolo    = "yolo"
)

// claudeReadOnlyTools is the disallowed list used for a ReadOnly policy.
var claudeReadOnlyTools = []string{"Write", "Edit", "Bash", "Delete"}

// claudeToolNames maps lower-case capability names to claude tool names.
var claudeToolNames = map[string]string{
	"write":     "Write",
	"edit":      "Edit",
	"multiedit": "MultiEdit",
	"bash":      "Bash",
	"delete":    "Delete",
	"notebook":  "NotebookEdit",
	"webfetch":  "WebFetch",
	"websearch": "WebSearch",
}

// CodexSandboxMode translates a policy to a codex sandbox mode. Any denied
// write-capable action selects the read-only sandbox.
func CodexSandboxMode(p domain.AccessPolicy) string {
	switch p.Kind() {
	case domain.PolicyReadOnly:
		return CodexSandboxReadOnly
	case domain.PolicyDenyList:
		if p.DeniesWrites() {
			return CodexSandboxReadOnly
		}
		return CodexSandboxWorkspaceWrite
	case domain.PolicyUnrestricted:
		return CodexSandboxWorkspaceWrite
	}
	return CodexSandboxWorkspaceWrite
}

// ClaudeDisallowedTools translates a policy to claude's disallowed tool list.
// Unknown capability names pass through unchanged. Nil means no restriction.
func ClaudeDisallowedTools(p domain.AccessPolicy) []string {
	switch p.Kind() {
	case domain.PolicyReadOnly:
		return append([]string(nil), claudeReadOnlyTools...)
	case domain.PolicyDenyList:
		var out []string
		seen := make(map[string]bool)
		for _, c := range p.Denied() {
			name, ok := claudeToolNames[strings.ToLower(string(c))]
			if !ok {
				name = string(c)
			}
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
		return out
	case domain.PolicyUnrestricted:
		return nil
	}
	return nil
}

// GeminiApprovalMode translates a policy to a gemini approval mode. Gemini
// only distinguishes restricted from unrestricted.
func GeminiApprovalMode(p domain.AccessPolicy) string {
	switch p.Kind() {
	case domain.PolicyReadOnly, domain.PolicyDenyList:
		return GeminiApprovalDefault
	case domain.PolicyUnrestricted:
		return GeminiApprovalYolo
	}
	return GeminiApprovalYolo
}
