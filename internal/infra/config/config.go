package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "multiagent-mcp.yaml"

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	HTTP     HTTPConfig    `yaml:"http"`
	Agents   AgentsConfig  `yaml:"agents"`
	Tasks    TasksConfig   `yaml:"tasks"`
	Batch    BatchConfig   `yaml:"batch"`
	Engines  EnginesConfig `yaml:"engines"`
	Logger   LoggerConfig  `yaml:"logger"`
	Tracer   TracerConfig  `yaml:"tracer"`
	Audit    AuditConfig   `yaml:"audit"`
	Includes []string      `yaml:"includes,omitempty"`
}

// ServerConfig holds MCP server identity and transport selection.
type ServerConfig struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	Transport    string `yaml:"transport"` // "stdio" or "http"
	Instructions string `yaml:"instructions,omitempty"`
}

// HTTPConfig holds streamable-HTTP transport settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	Endpoint        string        `yaml:"endpoint"`
	AuthTokens      []string      `yaml:"auth_tokens,omitempty"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"` // 0 disables rate limiting
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AgentsConfig holds agent roster settings.
type AgentsConfig struct {
	OverridesFile      string `yaml:"overrides_file,omitempty"`
	DefaultCwd         string `yaml:"default_cwd,omitempty"`
	BootstrapOverrides bool   `yaml:"bootstrap_overrides"`
}

// TasksConfig holds background task registry settings.
type TasksConfig struct {
	Retention     time.Duration `yaml:"retention"`
	SweepSchedule string        `yaml:"sweep_schedule"` // cron expression or @every descriptor
	PollInterval  time.Duration `yaml:"poll_interval"`
	WaitTimeout   time.Duration `yaml:"wait_timeout"`
	PreviewChars  int           `yaml:"preview_chars"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// BatchConfig bounds call_agents_batch.
type BatchConfig struct {
	MaxCalls int `yaml:"max_calls"`
}

// EnginesConfig holds per-provider CLI settings.
type EnginesConfig struct {
	Codex          EngineConfig         `yaml:"codex"`
	Claude         EngineConfig         `yaml:"claude"`
	Gemini         EngineConfig         `yaml:"gemini"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// EngineConfig configures one backing engine binary.
type EngineConfig struct {
	Command   string            `yaml:"command"`
	ExtraArgs []string          `yaml:"extra_args,omitempty"`
	Timeout   time.Duration     `yaml:"timeout"`
	Env       map[string]string `yaml:"env,omitempty"`
}

// CircuitBreakerConfig configures the per-engine circuit breaker.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// AuditConfig configures the JSONL audit trail. An empty Path disables it.
type AuditConfig struct {
	Path    string        `yaml:"path,omitempty"`
	MaxAge  time.Duration `yaml:"max_age,omitempty"`
	MaxSize string        `yaml:"max_size,omitempty"` // e.g. "50MB"
}

// MaxSizeBytes parses MaxSize such as "100MB" or "1GB". Empty means no limit.
func (a AuditConfig) MaxSizeBytes() (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(a.MaxSize))
	if s == "" {
		return 0, nil
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1 << 30
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1 << 20
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1 << 10
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", a.MaxSize)
	}
	return n * multiplier, nil
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "multiagent-mcp",
			Version:   "0.1.0",
			Transport: "stdio",
		},
		HTTP: HTTPConfig{
			Addr:            "127.0.0.1:8765",
			Endpoint:        "/mcp",
			RateLimitPerMin: 120,
			RateLimitBurst:  20,
			ShutdownTimeout: 10 * time.Second,
		},
		Agents: AgentsConfig{
			BootstrapOverrides: true,
		},
		Tasks: TasksConfig{
			Retention:     time.Hour,
			SweepSchedule: "@every 5m",
			PollInterval:  100 * time.Millisecond,
			WaitTimeout:   5 * time.Minute,
			PreviewChars:  100,
			ShutdownGrace: 30 * time.Second,
		},
		Batch: BatchConfig{
			MaxCalls: 10,
		},
		Engines: EnginesConfig{
			Codex:  EngineConfig{Command: "codex", Timeout: 10 * time.Minute},
			Claude: EngineConfig{Command: "claude", Timeout: 10 * time.Minute},
			Gemini: EngineConfig{Command: "gemini", Timeout: 10 * time.Minute},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides and validates the
// result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Includes) > 0 {
		if err := applyIncludes(cfg, absPath); err != nil {
			return nil, err
		}
		// Main file takes precedence over anything it includes.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (second pass): %w", err)
		}
		cfg.Includes = nil
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps MULTIAGENT_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MULTIAGENT_SERVER_TRANSPORT"); v != "" {
		cfg.Server.Transport = v
	}
	if v := os.Getenv("MULTIAGENT_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("MULTIAGENT_HTTP_ENDPOINT"); v != "" {
		cfg.HTTP.Endpoint = v
	}
	if v := os.Getenv("MULTIAGENT_HTTP_AUTH_TOKENS"); v != "" {
		cfg.HTTP.AuthTokens = splitAndTrim(v, ",")
	}
	if v := os.Getenv("MULTIAGENT_HTTP_RATE_LIMIT_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.HTTP.RateLimitPerMin = n
		}
	}
	if v := os.Getenv("MULTIAGENT_AGENTS_OVERRIDES_FILE"); v != "" {
		cfg.Agents.OverridesFile = v
	}
	if v := os.Getenv("MULTIAGENT_AGENTS_DEFAULT_CWD"); v != "" {
		cfg.Agents.DefaultCwd = v
	}
	if v := os.Getenv("MULTIAGENT_AGENTS_BOOTSTRAP_OVERRIDES"); v == "false" {
		cfg.Agents.BootstrapOverrides = false
	}
	if v := os.Getenv("MULTIAGENT_TASKS_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Tasks.Retention = d
		}
	}
	if v := os.Getenv("MULTIAGENT_TASKS_SWEEP_SCHEDULE"); v != "" {
		cfg.Tasks.SweepSchedule = v
	}
	if v := os.Getenv("MULTIAGENT_TASKS_WAIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Tasks.WaitTimeout = d
		}
	}
	if v := os.Getenv("MULTIAGENT_BATCH_MAX_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Batch.MaxCalls = n
		}
	}
	if v := os.Getenv("MULTIAGENT_CODEX_COMMAND"); v != "" {
		cfg.Engines.Codex.Command = v
	}
	if v := os.Getenv("MULTIAGENT_CLAUDE_COMMAND"); v != "" {
		cfg.Engines.Claude.Command = v
	}
	if v := os.Getenv("MULTIAGENT_GEMINI_COMMAND"); v != "" {
		cfg.Engines.Gemini.Command = v
	}
	if v := os.Getenv("MULTIAGENT_ENGINE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Engines.Codex.Timeout = d
			cfg.Engines.Claude.Timeout = d
			cfg.Engines.Gemini.Timeout = d
		}
	}
	if v := os.Getenv("MULTIAGENT_CIRCUIT_BREAKER_ENABLED"); v == "false" {
		cfg.Engines.CircuitBreaker.Enabled = false
	}
	if v := os.Getenv("MULTIAGENT_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("MULTIAGENT_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("MULTIAGENT_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("MULTIAGENT_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("MULTIAGENT_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("MULTIAGENT_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}
}

// Engine returns the engine settings for a provider name.
func (c *EnginesConfig) Engine(provider string) (EngineConfig, bool) {
	switch provider {
	case "codex":
		return c.Codex, true
	case "claude":
		return c.Claude, true
	case "gemini":
		return c.Gemini, true
	}
	return EngineConfig{}, false
}

// splitAndTrim splits s by sep, trims whitespace and drops empty elements.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
