package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: voiceclip
environment: staging
server:
  port: 9090
pipeline:
  match_threshold: 0.25
storage:
  provider: local
  base_path: /data
`)

	var cfg Config
	if err := Load(&cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("environment = %q, want staging", cfg.Environment)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Pipeline.MatchThreshold != 0.25 {
		t.Errorf("match_threshold = %g, want 0.25", cfg.Pipeline.MatchThreshold)
	}
	if cfg.Storage.BasePath != "/data" {
		t.Errorf("storage.base_path = %q, want /data", cfg.Storage.BasePath)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
server:
  port: 8080
`)
	t.Setenv("VOICECLIP_SERVER_PORT", "9999")

	var cfg Config
	if err := Load(&cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want env override 9999", cfg.Server.Port)
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Name != "voiceclip" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Environment != "development" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d", cfg.Server.Port)
	}
	if cfg.Pipeline.MatchThreshold != 0.3 {
		t.Errorf("match_threshold = %g", cfg.Pipeline.MatchThreshold)
	}
	if cfg.Logging.ServiceName != "voiceclip" {
		t.Errorf("logging.service_name = %q", cfg.Logging.ServiceName)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestValidate_BadEnvironment(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Environment = "qa"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown environment")
	}
}
