package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aide.yaml")
	if err := os.WriteFile(path, []byte("listen:\n  port: 9090\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Listen.Port)
	}
	if cfg.Agent.MaxSteps != 10 {
		t.Errorf("expected default max_steps 10, got %d", cfg.Agent.MaxSteps)
	}
	if cfg.Agent.ContextWindow != 20 {
		t.Errorf("expected default context_window 20, got %d", cfg.Agent.ContextWindow)
	}
	if cfg.Sandbox.TimeoutSec != 10 {
		t.Errorf("expected default sandbox timeout 10, got %d", cfg.Sandbox.TimeoutSec)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("AIDE_TEST_KEY", "sk-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "aide.yaml")
	content := "logic:\n  api_key: ${AIDE_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logic.APIKey != "sk-secret" {
		t.Errorf("expected expanded api key, got %q", cfg.Logic.APIKey)
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/aide.yaml")
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestFindConfigExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig failed: %v", err)
	}
	if found != path {
		t.Errorf("expected %q, got %q", path, found)
	}
}

func TestDataPaths(t *testing.T) {
	cfg := Default()
	if cfg.SessionsDir() != filepath.Join("data", "sessions") {
		t.Errorf("unexpected sessions dir %q", cfg.SessionsDir())
	}
	if cfg.PersonasFile() != filepath.Join("data", "personas.json") {
		t.Errorf("unexpected personas file %q", cfg.PersonasFile())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"", false},
		{"info", false},
		{"DEBUG", false},
		{"trace", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		_, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
