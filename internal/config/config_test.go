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

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Feedback.Interval.Std() != 5*time.Second {
		t.Errorf("Feedback.Interval = %v, want 5s", cfg.Feedback.Interval.Std())
	}
	if cfg.Feedback.EmissionCap != 10 {
		t.Errorf("Feedback.EmissionCap = %d, want 10", cfg.Feedback.EmissionCap)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: 127.0.0.1
  auth_token: sekrit
  allowed_origins:
    - https://app.example.com
feedback:
  interval: 2s
  emission_cap: 25
storage:
  driver: sqlite
  dsn: sessions.db
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server = %+v, want overrides applied", cfg.Server)
	}
	if cfg.Server.AuthToken != "sekrit" {
		t.Errorf("AuthToken = %q", cfg.Server.AuthToken)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Feedback.Interval.Std() != 2*time.Second {
		t.Errorf("Feedback.Interval = %v, want 2s", cfg.Feedback.Interval.Std())
	}
	if cfg.Feedback.EmissionCap != 25 {
		t.Errorf("Feedback.EmissionCap = %d, want 25", cfg.Feedback.EmissionCap)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.DSN != "sessions.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoadPartialOverride(t *testing.T) {
	// Only one section overridden; everything else keeps its default.
	path := writeConfig(t, "feedback:\n  emission_cap: 3\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Feedback.EmissionCap != 3 {
		t.Errorf("EmissionCap = %d, want 3", cfg.Feedback.EmissionCap)
	}
	if cfg.Feedback.Interval.Std() != 5*time.Second {
		t.Errorf("Interval = %v, want default 5s", cfg.Feedback.Interval.Std())
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")

	if _, err := Load(path); err == nil {
		t.Error("Load of malformed yaml should fail")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"ZeroInterval", "feedback:\n  interval: 0s\n"},
		{"UnparseableInterval", "feedback:\n  interval: soon\n"},
		{"NegativeCap", "feedback:\n  emission_cap: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load should reject invalid values")
			}
		})
	}
}
