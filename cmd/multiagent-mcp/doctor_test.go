package main

import (
	"bytes"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"multiagent-mcp/internal/infra/config"
)

func stubLookPath(t *testing.T, present ...string) {
	t.Helper()
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })
	lookPath = func(name string) (string, error) {
		for _, p := range present {
			if p == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestCheckConfigFile_Missing(t *testing.T) {
	result := checkConfigFile("/nonexistent/path/multiagent-mcp.yaml", nil)(nil)
	if result.Status != StatusWarn {
		t.Errorf("expected WARN for missing config, got %s", result.Status)
	}
}

func TestCheckConfigFile_Invalid(t *testing.T) {
	result := checkConfigFile("x.yaml", &config.ValidationError{Errors: []string{"bad"}})(nil)
	if result.Status != StatusFail {
		t.Errorf("expected FAIL, got %s", result.Status)
	}
	if result.Fix == "" {
		t.Error("expected fix suggestion")
	}
}

func TestCheckAgentModels(t *testing.T) {
	cfg := config.Defaults()
	if r := checkAgentModels(cfg); r.Status != StatusPass {
		t.Fatalf("defaults should pass, got %s: %s", r.Status, r.Message)
	}

	dir := t.TempDir()
	overrides := filepath.Join(dir, "agents.yaml")
	writeTestFile(t, overrides, "agents:\n  oracle:\n    model: nonsense\n")
	cfg.Agents.OverridesFile = overrides
	r := checkAgentModels(cfg)
	if r.Status != StatusFail {
		t.Fatalf("expected FAIL for bad model, got %s", r.Status)
	}
}

func TestCheckEngineBinaries(t *testing.T) {
	cfg := config.Defaults()

	stubLookPath(t, "codex", "claude", "gemini")
	if r := checkEngineBinaries(cfg); r.Status != StatusPass {
		t.Errorf("all present: got %s", r.Status)
	}

	// The default roster never uses gemini.
	stubLookPath(t, "codex", "claude")
	if r := checkEngineBinaries(cfg); r.Status != StatusWarn {
		t.Errorf("unused missing: got %s", r.Status)
	}

	stubLookPath(t, "claude")
	r := checkEngineBinaries(cfg)
	if r.Status != StatusFail {
		t.Errorf("needed missing: got %s", r.Status)
	}
	if r.Fix == "" {
		t.Error("expected fix suggestion")
	}
}

func TestCheckOverridesFile(t *testing.T) {
	cfg := config.Defaults()
	if r := checkOverridesFile(cfg); r.Status != StatusPass {
		t.Errorf("unset: got %s", r.Status)
	}

	dir := t.TempDir()
	cfg.Agents.OverridesFile = filepath.Join(dir, "agents.yaml")
	if r := checkOverridesFile(cfg); r.Status != StatusWarn {
		t.Errorf("missing: got %s", r.Status)
	}

	writeTestFile(t, cfg.Agents.OverridesFile, "agents: [")
	if r := checkOverridesFile(cfg); r.Status != StatusFail {
		t.Errorf("malformed: got %s", r.Status)
	}
}

func TestCheckWorkDir(t *testing.T) {
	cfg := config.Defaults()
	cfg.Agents.DefaultCwd = t.TempDir()
	if r := checkWorkDir(cfg); r.Status != StatusPass {
		t.Errorf("dir: got %s", r.Status)
	}
	cfg.Agents.DefaultCwd = filepath.Join(cfg.Agents.DefaultCwd, "missing")
	if r := checkWorkDir(cfg); r.Status != StatusFail {
		t.Errorf("missing dir: got %s", r.Status)
	}
}

func TestCheckHTTP(t *testing.T) {
	cfg := config.Defaults()
	if r := checkHTTP(cfg); r.Status != StatusPass {
		t.Errorf("stdio: got %s", r.Status)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg.Server.Transport = "http"
	cfg.HTTP.Addr = ln.Addr().String()
	if r := checkHTTP(cfg); r.Status != StatusFail {
		t.Errorf("port in use: got %s", r.Status)
	}

	cfg.HTTP.Addr = "0.0.0.0:0"
	if r := checkHTTP(cfg); r.Status != StatusWarn {
		t.Errorf("open endpoint without auth: got %s", r.Status)
	}
	cfg.HTTP.AuthTokens = []string{"t"}
	if r := checkHTTP(cfg); r.Status != StatusPass {
		t.Errorf("with auth: got %s", r.Status)
	}
}

func TestRunDoctorReportsFailures(t *testing.T) {
	stubLookPath(t)
	dir := t.TempDir()
	var out bytes.Buffer
	err := runDoctor(options{configPath: filepath.Join(dir, "none.yaml")}, &out)
	if err == nil {
		t.Fatal("expected error when engines are missing")
	}
	if !bytes.Contains(out.Bytes(), []byte("[FAIL] Engine binaries")) {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}
