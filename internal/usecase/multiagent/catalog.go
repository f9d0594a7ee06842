package multiagent

import (
	"fmt"
	"log/slog"
	"sync"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/config"
)

// Catalog holds the agent configs and serves lookups. Overrides are applied
// once at startup; after that the catalog is read-only.
type Catalog struct {
	mu     sync.RWMutex
	agents map[string]domain.AgentConfig
	order  []string
	logger *slog.Logger
}

// NewCatalog creates a catalog over agents, keeping their order.
func NewCatalog(agents []domain.AgentConfig, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{
		agents: make(map[string]domain.AgentConfig, len(agents)),
		order:  make([]string, 0, len(agents)),
		logger: logger,
	}
	for _, a := range agents {
		if a.Name == "" {
			return nil, domain.NewSubSystemError("agent", "NewCatalog", domain.ErrInvalidInput, "agent name must not be empty")
		}
		if _, exists := c.agents[a.Name]; exists {
			return nil, domain.NewSubSystemError("agent", "NewCatalog", domain.ErrDuplicate, a.Name)
		}
		c.agents[a.Name] = a
		c.order = append(c.order, a.Name)
	}
	return c, nil
}

// Get returns the config for name.
func (c *Catalog) Get(name string) (domain.AgentConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.agents[name]
	if !ok {
		return domain.AgentConfig{}, domain.NewSubSystemError("agent", "Catalog.Get", domain.ErrNotFound,
			fmt.Sprintf("unknown agent %q", name))
	}
	return a, nil
}

// List returns every agent in roster order.
func (c *Catalog) List() []domain.AgentConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.AgentConfig, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.agents[name])
	}
	return out
}

// Names returns every agent name in roster order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Apply updates model and enabled from overrides and returns the names it
// did not recognize.
func (c *Catalog) Apply(overrides map[string]config.AgentOverride) (unknown []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, o := range overrides {
		a, ok := c.agents[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if o.Model != nil && *o.Model != "" {
			a.Model = *o.Model
		}
		if o.Enabled != nil {
			a.Enabled = *o.Enabled
		}
		c.agents[name] = a
		c.logger.Debug("agent override applied", "agent", name, "model", a.Model, "enabled", a.Enabled)
	}
	return unknown
}

// Snapshot returns the current model and enabled settings of every agent.
func (c *Catalog) Snapshot() map[string]config.AgentOverride {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]config.AgentOverride, len(c.agents))
	for name, a := range c.agents {
		model, enabled := a.Model, a.Enabled
		out[name] = config.AgentOverride{Model: &model, Enabled: &enabled}
	}
	return out
}

var _ domain.AgentCatalog = (*Catalog)(nil)
