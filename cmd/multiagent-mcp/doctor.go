package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"multiagent-mcp/internal/adapter/engine"
	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/config"
	"multiagent-mcp/internal/infra/logger"
	"multiagent-mcp/internal/usecase/multiagent"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// lookPath is swapped in tests.
var lookPath = engine.LookPath

// runDoctor executes all health checks and reports results.
func runDoctor(opts options, w io.Writer) error {
	// Some checks work without a config.
	cfg, cfgErr := loadConfig(opts)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(opts.configPath, cfgErr)},
		{Name: "Agent models", Fn: checkAgentModels},
		{Name: "Engine binaries", Fn: checkEngineBinaries},
		{Name: "Overrides file", Fn: checkOverridesFile},
		{Name: "Working directory", Fn: checkWorkDir},
		{Name: "HTTP transport", Fn: checkHTTP},
	}

	fmt.Fprintln(w, "multiagent-mcp doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile reports whether the config file exists and parses. A
// missing file is fine: the defaults apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Fix %s or the MULTIAGENT_* environment variables", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("%s not found, using defaults", cfgPath),
			}
		}
		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("config loaded from %s", cfgPath)}
	}
}

// doctorCatalog builds the roster with overrides applied, without ever
// writing the overrides file.
func doctorCatalog(cfg *config.Config) (*multiagent.Catalog, error) {
	log := logger.Discard()
	catalog, err := multiagent.NewCatalog(multiagent.Roster(), log)
	if err != nil {
		return nil, err
	}
	agentsCfg := cfg.Agents
	agentsCfg.BootstrapOverrides = false
	if err := multiagent.LoadOverrides(catalog, agentsCfg, log); err != nil {
		return nil, err
	}
	return catalog, nil
}

// checkAgentModels parses every enabled agent's model identifier.
func checkAgentModels(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "no config loaded"}
	}
	catalog, err := doctorCatalog(cfg)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}

	var bad []string
	enabled := 0
	for _, a := range catalog.List() {
		if !a.Enabled {
			continue
		}
		enabled++
		if _, err := engine.ParseModelID(a.Model); err != nil {
			bad = append(bad, fmt.Sprintf("%s (%s)", a.Name, a.Model))
		}
	}
	if len(bad) > 0 {
		return CheckResult{
			Status:  StatusFail,
			Message: "invalid model for " + strings.Join(bad, ", "),
			Fix:     `Use "provider/model" or one of: ` + strings.Join(engine.Aliases(), ", "),
		}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%d enabled agent(s) resolve", enabled)}
}

// checkEngineBinaries fails when an enabled agent needs a binary that is not
// on PATH, and warns for unused missing binaries.
func checkEngineBinaries(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "no config loaded"}
	}
	needed := map[domain.ProviderKind]bool{}
	if catalog, err := doctorCatalog(cfg); err == nil {
		for _, a := range catalog.List() {
			if ref, err := engine.ParseModelID(a.Model); err == nil && a.Enabled {
				needed[ref.Provider] = true
			}
		}
	}

	var missingNeeded, missingUnused, found []string
	for _, p := range domain.Providers {
		ec, _ := cfg.Engines.Engine(string(p))
		cmd := ec.Command
		if cmd == "" {
			cmd = string(p)
		}
		if _, err := lookPath(cmd); err != nil {
			if needed[p] {
				missingNeeded = append(missingNeeded, cmd)
			} else {
				missingUnused = append(missingUnused, cmd)
			}
			continue
		}
		found = append(found, cmd)
	}

	switch {
	case len(missingNeeded) > 0:
		return CheckResult{
			Status:  StatusFail,
			Message: "not on PATH: " + strings.Join(missingNeeded, ", "),
			Fix:     "Install the CLI or set engines.<provider>.command to its path",
		}
	case len(missingUnused) > 0:
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("found %s; not installed (unused): %s", strings.Join(found, ", "), strings.Join(missingUnused, ", ")),
		}
	default:
		return CheckResult{Status: StatusPass, Message: "found " + strings.Join(found, ", ")}
	}
}

func checkOverridesFile(cfg *config.Config) CheckResult {
	if cfg == nil || cfg.Agents.OverridesFile == "" {
		return CheckResult{Status: StatusPass, Message: "no overrides file configured"}
	}
	overrides, found, err := config.LoadOverrides(cfg.Agents.OverridesFile)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     "Fix the YAML or delete the file to regenerate it",
		}
	}
	if !found {
		msg := fmt.Sprintf("%s does not exist", cfg.Agents.OverridesFile)
		if cfg.Agents.BootstrapOverrides {
			msg += "; it will be created on first start"
		}
		return CheckResult{Status: StatusWarn, Message: msg}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%d override(s) in %s", len(overrides), cfg.Agents.OverridesFile)}
}

func checkWorkDir(cfg *config.Config) CheckResult {
	if cfg == nil || cfg.Agents.DefaultCwd == "" {
		return CheckResult{Status: StatusPass, Message: "agents run in the server's working directory"}
	}
	info, err := os.Stat(cfg.Agents.DefaultCwd)
	if err != nil || !info.IsDir() {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("agents.default_cwd %s is not a directory", cfg.Agents.DefaultCwd),
		}
	}
	return CheckResult{Status: StatusPass, Message: "agents default to " + cfg.Agents.DefaultCwd}
}

// checkHTTP verifies the listen address is free and warns about an
// unauthenticated non-loopback endpoint.
func checkHTTP(cfg *config.Config) CheckResult {
	if cfg == nil || cfg.Server.Transport != "http" {
		return CheckResult{Status: StatusPass, Message: "stdio transport"}
	}
	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot listen on %s: %v", cfg.HTTP.Addr, err),
		}
	}
	_ = ln.Close()

	host, _, _ := net.SplitHostPort(cfg.HTTP.Addr)
	if len(cfg.HTTP.AuthTokens) == 0 && !isLoopback(host) {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s is reachable without authentication", cfg.HTTP.Addr),
			Fix:     "Set http.auth_tokens or MULTIAGENT_HTTP_AUTH_TOKENS",
		}
	}
	return CheckResult{Status: StatusPass, Message: "listening on " + cfg.HTTP.Addr + cfg.HTTP.Endpoint}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
