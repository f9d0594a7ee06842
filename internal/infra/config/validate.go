package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateHTTP(cfg, ve)
	validateTasks(cfg, ve)
	validateBatch(cfg, ve)
	validateEngines(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateAudit(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateServer(cfg *Config, ve *ValidationError) {
	if cfg.Server.Name == "" {
		ve.Add("server.name must not be empty")
	}
	switch cfg.Server.Transport {
	case "stdio", "http":
	default:
		ve.Add("server.transport %q is invalid (valid: stdio, http)", cfg.Server.Transport)
	}
}

func validateHTTP(cfg *Config, ve *ValidationError) {
	if cfg.Server.Transport != "http" {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		ve.Add("http.addr %q is invalid: %v", cfg.HTTP.Addr, err)
	}
	if !strings.HasPrefix(cfg.HTTP.Endpoint, "/") {
		ve.Add("http.endpoint must start with /")
	}
	if cfg.HTTP.RateLimitPerMin < 0 {
		ve.Add("http.rate_limit_per_min must be >= 0")
	}
	if cfg.HTTP.RateLimitPerMin > 0 && cfg.HTTP.RateLimitBurst <= 0 {
		ve.Add("http.rate_limit_burst must be > 0 when rate limiting is enabled")
	}
	for i, tok := range cfg.HTTP.AuthTokens {
		if strings.TrimSpace(tok) == "" {
			ve.Add("http.auth_tokens[%d] must not be empty", i)
		}
	}
}

func validateTasks(cfg *Config, ve *ValidationError) {
	t := cfg.Tasks
	if t.Retention <= 0 {
		ve.Add("tasks.retention must be > 0")
	}
	if t.PollInterval <= 0 {
		ve.Add("tasks.poll_interval must be > 0")
	}
	if t.WaitTimeout <= 0 {
		ve.Add("tasks.wait_timeout must be > 0")
	}
	if t.PollInterval > 0 && t.WaitTimeout > 0 && t.PollInterval > t.WaitTimeout {
		ve.Add("tasks.poll_interval must not exceed tasks.wait_timeout")
	}
	if t.PreviewChars <= 0 {
		ve.Add("tasks.preview_chars must be > 0")
	}
	if t.SweepSchedule == "" {
		ve.Add("tasks.sweep_schedule must not be empty")
	} else if _, err := cron.ParseStandard(t.SweepSchedule); err != nil {
		ve.Add("tasks.sweep_schedule %q is invalid: %v", t.SweepSchedule, err)
	}
}

func validateBatch(cfg *Config, ve *ValidationError) {
	if cfg.Batch.MaxCalls < 1 {
		ve.Add("batch.max_calls must be >= 1")
	}
}

func validateEngines(cfg *Config, ve *ValidationError) {
	for name, e := range map[string]EngineConfig{
		"codex":  cfg.Engines.Codex,
		"claude": cfg.Engines.Claude,
		"gemini": cfg.Engines.Gemini,
	} {
		if e.Command == "" {
			ve.Add("engines.%s.command must not be empty", name)
		}
		if e.Timeout < 0 {
			ve.Add("engines.%s.timeout must be >= 0", name)
		}
	}
	cb := cfg.Engines.CircuitBreaker
	if cb.Enabled && cb.Timeout > 0 && cb.Timeout < time.Second {
		ve.Add("engines.circuit_breaker.timeout must be at least 1s")
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (valid: debug, info, warn, error)", cfg.Logger.Level)
	}
	switch cfg.Logger.Format {
	case "text", "json":
	default:
		ve.Add("logger.format %q is invalid (valid: text, json)", cfg.Logger.Format)
	}
	if cfg.Server.Transport == "stdio" && cfg.Logger.Output == "stdout" {
		ve.Add("logger.output must not be stdout with the stdio transport")
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is invalid (valid: noop, stdout)", cfg.Tracer.Exporter)
	}
}

func validateAudit(cfg *Config, ve *ValidationError) {
	if cfg.Audit.MaxAge < 0 {
		ve.Add("audit.max_age must be >= 0")
	}
	if _, err := cfg.Audit.MaxSizeBytes(); err != nil {
		ve.Add("audit.max_size: %v", err)
	}
}
