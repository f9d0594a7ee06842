package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// AgentOverride is one agent's entry in the override side file.
// Nil fields leave the built-in value untouched.
type AgentOverride struct {
	Model   *string `yaml:"model,omitempty"`
	Enabled *bool   `yaml:"enabled,omitempty"`
}

// OverridesFile is the on-disk shape of the override side file.
type OverridesFile struct {
	Agents map[string]AgentOverride `yaml:"agents"`
}

// LoadOverrides reads the override side file. A missing file is reported
// through the found flag rather than as an error.
func LoadOverrides(path string) (overrides map[string]AgentOverride, found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read overrides: %w", err)
	}
	var f OverridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, true, fmt.Errorf("parse overrides %s: %w", path, err)
	}
	if f.Agents == nil {
		f.Agents = map[string]AgentOverride{}
	}
	return f.Agents, true, nil
}

// WriteOverrides writes a snapshot of agent settings to path, creating parent
// directories as needed. Agents are written in name order.
func WriteOverrides(path string, agents map[string]AgentOverride) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create overrides dir: %w", err)
	}

	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)

	// Build the node by hand so the file lists agents deterministically.
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range names {
		var entry yaml.Node
		if err := entry.Encode(agents[name]); err != nil {
			return fmt.Errorf("encode override %s: %w", name, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name},
			&entry,
		)
	}
	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "agents"},
		root,
	}}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal overrides: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write overrides: %w", err)
	}
	return nil
}
