package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Resilience.Retry.MaxAttempts != 3 {
		t.Errorf("retry attempts = %d, want 3", cfg.Resilience.Retry.MaxAttempts)
	}
	if cfg.Resilience.Retry.BaseDelay != time.Second {
		t.Errorf("base delay = %v, want 1s", cfg.Resilience.Retry.BaseDelay)
	}
	if cfg.Resilience.Breaker.FailureThreshold != 5 {
		t.Errorf("failure threshold = %d, want 5", cfg.Resilience.Breaker.FailureThreshold)
	}
	if cfg.Resilience.Breaker.Cooldown != 30*time.Second {
		t.Errorf("cooldown = %v, want 30s", cfg.Resilience.Breaker.Cooldown)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Storage.SQLite.Path != "relay.db" {
		t.Errorf("sqlite path = %q, want relay.db", cfg.Storage.SQLite.Path)
	}
	if cfg.Connectivity.ProbeInterval != 10*time.Second {
		t.Errorf("probe interval = %v, want 10s", cfg.Connectivity.ProbeInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("RELAY_PG_URL", "postgres://relay:secret@db:5432/relay")

	path := writeConfig(t, `
storage:
  backend: postgres
  postgres:
    url: ${RELAY_PG_URL}
connectivity:
  http_probes:
    - https://example.com/healthz
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "postgres" {
		t.Errorf("backend = %q, want postgres", cfg.Storage.Backend)
	}
	if cfg.Storage.Postgres.URL != "postgres://relay:secret@db:5432/relay" {
		t.Errorf("postgres url = %q, env var was not expanded", cfg.Storage.Postgres.URL)
	}
	if len(cfg.Connectivity.HTTPProbes) != 1 {
		t.Errorf("http probes = %v, want one entry", cfg.Connectivity.HTTPProbes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}
