package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout 30s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 0 {
		t.Errorf("expected write timeout 0 for long-lived streams, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Database.Path != "./data/intake.db" {
		t.Errorf("expected default database path, got %s", cfg.Database.Path)
	}
	if cfg.Auth.TokenDuration != 24*time.Hour {
		t.Errorf("expected token duration 24h, got %v", cfg.Auth.TokenDuration)
	}
	if cfg.Broadcast.ViewerBuffer != 8 {
		t.Errorf("expected viewer buffer 8, got %d", cfg.Broadcast.ViewerBuffer)
	}
	if cfg.Printing.JobBuffer != 32 {
		t.Errorf("expected job buffer 32, got %d", cfg.Printing.JobBuffer)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("expected info/json logging, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9090
database:
  path: /tmp/test.db
logging:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("expected overridden database path, got %s", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("expected debug/text logging, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	// Untouched sections keep their defaults.
	if cfg.Auth.TokenDuration != 24*time.Hour {
		t.Errorf("expected default token duration, got %v", cfg.Auth.TokenDuration)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("INTAKE_PORT", "7070")
	t.Setenv("INTAKE_DB_PATH", "/tmp/env.db")
	t.Setenv("INTAKE_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070 from env, got %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("expected database path from env, got %s", cfg.Database.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn from env, got %s", cfg.Logging.Level)
	}
}

func TestLoad_RejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{"defaults are valid", func(cfg *Config) {}, false},
		{"port too low", func(cfg *Config) { cfg.Server.Port = 0 }, true},
		{"port too high", func(cfg *Config) { cfg.Server.Port = 70000 }, true},
		{"empty database path", func(cfg *Config) { cfg.Database.Path = "" }, true},
		{"zero token duration", func(cfg *Config) { cfg.Auth.TokenDuration = 0 }, true},
		{"zero viewer buffer", func(cfg *Config) { cfg.Broadcast.ViewerBuffer = 0 }, true},
		{"zero job buffer", func(cfg *Config) { cfg.Printing.JobBuffer = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
