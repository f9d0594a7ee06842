package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"multiagent-mcp/internal/domain"
)

var policyCases = []struct {
	name   string
	policy domain.AccessPolicy
	codex  string
	claude []string
	gemini string
}{
	{"empty", domain.DenyList(), CodexSandboxWorkspaceWrite, nil, GeminiApprovalYolo},
	{"absent", domain.PolicyFromConfig(nil, false), CodexSandboxWorkspaceWrite, nil, GeminiApprovalYolo},
	{"write", domain.DenyList("write"), CodexSandboxReadOnly, []string{"Write"}, GeminiApprovalDefault},
	{"edit", domain.DenyList("edit"), CodexSandboxReadOnly, []string{"Edit"}, GeminiApprovalDefault},
	{"write edit bash", domain.DenyList("write", "edit", "bash"), CodexSandboxReadOnly, []string{"Write", "Edit", "Bash"}, GeminiApprovalDefault},
	{"read-only", domain.PolicyFromConfig(nil, true), CodexSandboxReadOnly, []string{"Write", "Edit", "Bash", "Delete"}, GeminiApprovalDefault},
	{"non-write only", domain.DenyList("webfetch"), CodexSandboxWorkspaceWrite, []string{"WebFetch"}, GeminiApprovalDefault},
	{"unknown passes through", domain.DenyList("SomeTool"), CodexSandboxWorkspaceWrite, []string{"SomeTool"}, GeminiApprovalDefault},
	{"case-insensitive", domain.DenyList("WRITE", "Bash"), CodexSandboxReadOnly, []string{"Write", "Bash"}, GeminiApprovalDefault},
}

func TestPolicyTranslation(t *testing.T) {
	for _, tt := range policyCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.codex, CodexSandboxMode(tt.policy))
			assert.Equal(t, tt.claude, ClaudeDisallowedTools(tt.policy))
			assert.Equal(t, tt.gemini, GeminiApprovalMode(tt.policy))
		})
	}
}

func TestPolicyTranslationIsDeterministic(t *testing.T) {
	for _, tt := range policyCases {
		for i := 0; i < 3; i++ {
			assert.Equal(t, CodexSandboxMode(tt.policy), CodexSandboxMode(tt.policy))
			assert.Equal(t, ClaudeDisallowedTools(tt.policy), ClaudeDisallowedTools(tt.policy))
			assert.Equal(t, GeminiApprovalMode(tt.policy), GeminiApprovalMode(tt.policy))
		}
	}
}

func TestClaudeReadOnlyListIsCopied(t *testing.T) {
	got := ClaudeDisallowedTools(domain.ReadOnly())
	got[0] = "mutated"
	assert.Equal(t, "Write", ClaudeDisallowedTools(domain.ReadOnly())[0])
}

func TestClaudeDedupesMappedNames(t *testing.T) {
	// Both map to MultiEdit after lookup.
	got := ClaudeDisallowedTools(domain.DenyList("multiedit", "MultiEdit"))
	assert.Equal(t, []string{"MultiEdit"}, got)
}
