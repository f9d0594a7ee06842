package engine

import (
	"fmt"
	"sort"
	"strings"

	"multiagent-mcp/internal/domain"
)

// aliases maps flat model names to a provider and its native model name.
var aliases = map[string]domain.ModelRef{
	"gpt-5.2":       {Provider: domain.ProviderCodex, Model: "gpt-5.2"},
	"gpt-5.2-codex": {Provider: domain.ProviderCodex, Model: "gpt-5.2-codex"},
	"claude-haiku":  {Provider: domain.ProviderClaude, Model: "haiku"},
	"claude-sonnet": {Provider: domain.ProviderClaude, Model: "sonnet"},
	"claude-opus":   {Provider: domain.ProviderClaude, Model: "opus"},
	"gemini-pro":    {Provider: domain.ProviderGemini, Model: "gemini-2.5-pro"},
	"gemini-flash":  {Provider: domain.ProviderGemini, Model: "gemini-2.5-flash"},
}

// Aliases returns the known flat model names, sorted.
func Aliases() []string {
	names := make([]string, 0, len(aliases))
	for k := range aliases {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ParseModelID parses either "provider/model" (split on the first slash) or
// a flat alias. It performs no I/O.
func ParseModelID(id string) (domain.ModelRef, error) {
	provider, model, ok := strings.Cut(id, "/")
	if !ok {
		if ref, found := aliases[id]; found {
			return ref, nil
		}
		return domain.ModelRef{}, domain.NewSubSystemError("model", "ParseModelID", domain.ErrMisconfigured,
			fmt.Sprintf(`invalid model format: %q. Use "provider/model" (e.g., "codex/gpt-5.2", "claude/sonnet") or one of: %s`,
				id, strings.Join(Aliases(), ", ")))
	}
	if model == "" {
		return domain.ModelRef{}, domain.NewSubSystemError("model", "ParseModelID", domain.ErrMisconfigured,
			fmt.Sprintf("missing model name in: %q", id))
	}
	kind := domain.ProviderKind(provider)
	if !kind.Valid() {
		return domain.ModelRef{}, domain.NewSubSystemError("provider", "ParseModelID", domain.ErrMisconfigured,
			fmt.Sprintf("unknown provider: %q. Available: %s", provider, providerList()))
	}
	return domain.ModelRef{Provider: kind, Model: model}, nil
}

func providerList() string {
	names := make([]string, len(domain.Providers))
	for i, p := range domain.Providers {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
