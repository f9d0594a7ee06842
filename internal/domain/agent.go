package domain

import "context"

// AgentConfig describes one agent personality: a system prompt bound to a
// model identifier and a capability policy. Configs are looked up, never
// mutated, except for start-time overrides of Model and Enabled.
type AgentConfig struct {
	Name         string       `json:"name"         yaml:"name"`
	DisplayName  string       `json:"display_name" yaml:"display_name"`
	Description  string       `json:"description"  yaml:"description"`
	Model        string       `json:"model"        yaml:"model"`
	SystemPrompt string       `json:"-"            yaml:"-"`
	Temperature  *float64     `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Policy       AccessPolicy `json:"-"            yaml:"-"`
	Enabled      bool         `json:"enabled"      yaml:"enabled"`
}

// AgentCatalog looks up agent configs by name.
type AgentCatalog interface {
	Get(name string) (AgentConfig, error)
	List() []AgentConfig
	Names() []string
}

// Invocation is a fully prepared agent call: the resolved handle plus
// everything the adapter needs to run it.
type Invocation struct {
	Agent   AgentConfig
	Handle  ModelHandle
	Prompt  string
	Context string
	WorkDir string
}

// InvocationResult is the normalized outcome of one agent call.
type InvocationResult struct {
	Text  string `json:"response"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// Invoker runs a prepared invocation to completion.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (*InvocationResult, error)
}
