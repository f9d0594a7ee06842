package domain

import "context"

// ProviderKind identifies one of the supported backing engines.
type ProviderKind string

const (
	ProviderCodex  ProviderKind = "codex"
	ProviderClaude ProviderKind = "claude"
	ProviderGemini ProviderKind = "gemini"
)

// Providers lists the supported engines in their canonical order.
var Providers = []ProviderKind{ProviderCodex, ProviderClaude, ProviderGemini}

// Valid reports whether p is one of the supported engines.
func (p ProviderKind) Valid() bool {
	for _, k := range Providers {
		if k == p {
			return true
		}
	}
	return false
}

// ModelRef is a parsed model identifier.
type ModelRef struct {
	Provider ProviderKind
	Model    string
}

// ID renders the canonical provider/model form.
func (r ModelRef) ID() string { return string(r.Provider) + "/" + r.Model }

// GenerateRequest is the input to one backing-model call.
type GenerateRequest struct {
	SystemPrompt  string
	Prompt        string
	Temperature   *float64
	SuppressTools bool
}

// Generation is the raw outcome reported by an engine.
type Generation struct {
	Text            string
	FinishReason    string
	RawFinishReason string
	Usage           Usage
}

// ModelHandle is an execution handle bound to a provider, model, policy and
// working directory. Constructing one performs no I/O.
type ModelHandle interface {
	Provider() ProviderKind
	Model() string
	Generate(ctx context.Context, req GenerateRequest) (*Generation, error)
}

// ModelResolver turns a model identifier and policy into an execution handle.
type ModelResolver interface {
	Resolve(identifier string, policy AccessPolicy, workDir string) (ModelHandle, error)
}
