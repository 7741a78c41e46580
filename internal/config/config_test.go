package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	def := Default()
	if cfg.Port != def.Port || cfg.MaxConcurrent != def.MaxConcurrent {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"port": 9000,
		"max_concurrent": 4,
		"idle_timeout_sec": 5,
		"request_timeout_sec": 120.5,
		"headers": {"User-Agent": "test-agent"}
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.MaxConcurrent != 4 {
		t.Errorf("max_concurrent = %d", cfg.MaxConcurrent)
	}
	if got := cfg.IdleTimeout.Duration(); got != 5*time.Second {
		t.Errorf("idle timeout = %s, want 5s", got)
	}
	if got := cfg.RequestTimeout.Duration(); got != 120500*time.Millisecond {
		t.Errorf("request timeout = %s, want 2m0.5s", got)
	}
	if cfg.Headers["User-Agent"] != "test-agent" {
		t.Errorf("headers = %v", cfg.Headers)
	}
	// Untouched fields keep their defaults.
	if cfg.YtDlpPath != Default().YtDlpPath {
		t.Errorf("ytdlp path = %q", cfg.YtDlpPath)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}
