package multiagent

import "multiagent-mcp/internal/domain"

// Agent names of the built-in roster.
const (
	AgentOracle         = "oracle"
	AgentLibrarian      = "librarian"
	AgentExplore        = "explore"
	AgentFrontend       = "frontend-ui-ux-engineer"
	AgentDocumentWriter = "document-writer"
	AgentMultimodal     = "multimodal-looker"
)

func temperature(v float64) *float64 { return &v }

// Roster returns a fresh copy of the built-in agents in display order.
func Roster() []domain.AgentConfig {
	return []domain.AgentConfig{
		{
			Name:         AgentOracle,
			DisplayName:  "Oracle",
			Description:  "Read-only consultation agent. High-IQ reasoning specialist for debugging hard problems and high-difficulty architecture design.",
			Model:        "codex/gpt-5.2",
			SystemPrompt: oraclePrompt,
			Temperature:  temperature(0.1),
			Policy:       domain.DenyList(domain.CapabilityWrite, domain.CapabilityEdit),
			Enabled:      true,
		},
		{
			Name:         AgentLibrarian,
			DisplayName:  "Librarian",
			Description:  "Specialized codebase understanding agent for multi-repository analysis, searching remote codebases, retrieving official documentation, and finding implementation examples.",
			Model:        "claude/haiku",
			SystemPrompt: librarianPrompt,
			Temperature:  temperature(0.1),
			Policy:       domain.DenyList(domain.CapabilityWrite, domain.CapabilityEdit),
			Enabled:      true,
		},
		{
			Name:         AgentExplore,
			DisplayName:  "Explore",
			Description:  `Contextual grep for codebases. Answers "Where is X?", "Which file has Y?", "Find the code that does Z".`,
			Model:        "claude/haiku",
			SystemPrompt: explorePrompt,
			Temperature:  temperature(0.1),
			Policy:       domain.DenyList(domain.CapabilityWrite, domain.CapabilityEdit),
			Enabled:      true,
		},
		{
			Name:         AgentFrontend,
			DisplayName:  "Frontend UI/UX Engineer",
			Description:  "A designer-turned-developer who crafts stunning UI/UX even without design mockups. Code may be a bit messy, but the visual output is always fire.",
			Model:        "claude/sonnet",
			SystemPrompt: frontendPrompt,
			Enabled:      true,
		},
		{
			Name:         AgentDocumentWriter,
			DisplayName:  "Document Writer",
			Description:  "A technical writer who crafts clear, comprehensive documentation. Specializes in README files, API docs, architecture docs, and user guides.",
			Model:        "claude/haiku",
			SystemPrompt: documentWriterPrompt,
			Enabled:      true,
		},
		{
			Name:         AgentMultimodal,
			DisplayName:  "Multimodal Looker",
			Description:  "Analyze media files (PDFs, images, diagrams) that require interpretation beyond raw text. Extracts specific information or summaries from documents.",
			Model:        "claude/sonnet",
			SystemPrompt: multimodalPrompt,
			Temperature:  temperature(0.1),
			Policy:       domain.DenyList(domain.CapabilityWrite, domain.CapabilityEdit, domain.CapabilityBash),
			Enabled:      true,
		},
	}
}
