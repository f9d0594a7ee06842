package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadOverridesMissing(t *testing.T) {
	ov, found, err := LoadOverrides(filepath.Join(t.TempDir(), "agents.yaml"))
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	if found || ov != nil {
		t.Errorf("found=%v ov=%v, want not found", found, ov)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	content := `
agents:
  oracle:
    model: claude/opus
  explore:
    enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	ov, found, err := LoadOverrides(path)
	if err != nil || !found {
		t.Fatalf("LoadOverrides: found=%v err=%v", found, err)
	}
	if ov["oracle"].Model == nil || *ov["oracle"].Model != "claude/opus" {
		t.Errorf("oracle = %+v", ov["oracle"])
	}
	if ov["oracle"].Enabled != nil {
		t.Error("oracle.enabled should be absent")
	}
	if ov["explore"].Enabled == nil || *ov["explore"].Enabled {
		t.Errorf("explore = %+v", ov["explore"])
	}
}

func TestLoadOverridesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	ov, found, err := LoadOverrides(path)
	if err != nil || !found || len(ov) != 0 {
		t.Errorf("ov=%v found=%v err=%v", ov, found, err)
	}
}

func TestWriteOverridesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "agents.yaml")
	model := "codex/gpt-5.2"
	enabled := true
	disabled := false
	err := WriteOverrides(path, map[string]AgentOverride{
		"oracle":    {Model: &model, Enabled: &enabled},
		"librarian": {Enabled: &disabled},
	})
	if err != nil {
		t.Fatalf("WriteOverrides: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Index(string(data), "librarian") > strings.Index(string(data), "oracle") {
		t.Errorf("agents should be sorted by name:\n%s", data)
	}

	ov, found, err := LoadOverrides(path)
	if err != nil || !found {
		t.Fatalf("LoadOverrides: %v", err)
	}
	if *ov["oracle"].Model != model || !*ov["oracle"].Enabled {
		t.Errorf("oracle = %+v", ov["oracle"])
	}
	if *ov["librarian"].Enabled {
		t.Errorf("librarian = %+v", ov["librarian"])
	}
}
