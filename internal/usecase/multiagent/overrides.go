package multiagent

import (
	"log/slog"
	"sort"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/config"
)

// LoadOverrides applies the override side file to the catalog. When the file
// does not exist and bootstrap is enabled, the current settings are written
// to it once so operators have something to edit.
func LoadOverrides(c *Catalog, cfg config.AgentsConfig, logger *slog.Logger) error {
	path := cfg.OverridesFile
	if path == "" {
		return nil
	}

	overrides, found, err := config.LoadOverrides(path)
	if err != nil {
		return domain.NewDomainError("LoadOverrides", domain.ErrConfigLoad, err.Error())
	}
	if !found {
		if !cfg.BootstrapOverrides {
			logger.Debug("agent overrides file not found", "path", path)
			return nil
		}
		if err := config.WriteOverrides(path, c.Snapshot()); err != nil {
			// A read-only filesystem must not stop the server.
			logger.Warn("could not write agent overrides snapshot", "path", path, "error", err)
			return nil
		}
		logger.Info("agent overrides snapshot written", "path", path)
		return nil
	}

	unknown := c.Apply(overrides)
	sort.Strings(unknown)
	for _, name := range unknown {
		logger.Warn("ignoring override for unknown agent", "agent", name, "path", path)
	}
	logger.Info("agent overrides applied", "path", path, "count", len(overrides)-len(unknown))
	return nil
}
