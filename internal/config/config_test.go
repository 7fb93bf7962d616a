package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg := LoadFromEnv()

	if cfg.Server.Port != 3010 {
		t.Errorf("port = %d, want 3010", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://localhost:8080/api" {
		t.Errorf("backend URL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Feed.RefreshInterval != 5*time.Second {
		t.Errorf("refresh interval = %v, want 5s", cfg.Feed.RefreshInterval)
	}
	if cfg.Billing.TransportFee != 100 {
		t.Errorf("transport fee = %v, want 100", cfg.Billing.TransportFee)
	}
	if cfg.Discharge.ConfirmationWindow != 3*time.Second {
		t.Errorf("confirmation window = %v, want 3s", cfg.Discharge.ConfirmationWindow)
	}
	if cfg.Prefs.DefaultTheme != "dark" {
		t.Errorf("default theme = %q, want dark", cfg.Prefs.DefaultTheme)
	}
	if !cfg.Journal.Enabled || cfg.Journal.MaxEvents != 10000 {
		t.Errorf("journal config = %+v", cfg.Journal)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FEED_REFRESH_INTERVAL", "2s")
	t.Setenv("JOURNAL_ENABLED", "false")

	cfg := LoadFromEnv()

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Feed.RefreshInterval != 2*time.Second {
		t.Errorf("refresh interval = %v, want 2s", cfg.Feed.RefreshInterval)
	}
	if cfg.Journal.Enabled {
		t.Error("journal should be disabled")
	}
}

func TestLoadFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("ATLAS_BACKEND_TIMEOUT", "soon")

	cfg := LoadFromEnv()

	if cfg.Server.Port != 3010 {
		t.Errorf("port = %d, want default 3010", cfg.Server.Port)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want default 30s", cfg.Backend.Timeout)
	}
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 4000
feed:
  refresh_interval: 10s
prefs:
  default_theme: light
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Feed.RefreshInterval != 10*time.Second {
		t.Errorf("refresh interval = %v, want 10s", cfg.Feed.RefreshInterval)
	}
	if cfg.Prefs.DefaultTheme != "light" {
		t.Errorf("theme = %q, want light", cfg.Prefs.DefaultTheme)
	}
	// Untouched values keep their defaults.
	if cfg.Billing.TransportFee != 100 {
		t.Errorf("transport fee = %v, want default 100", cfg.Billing.TransportFee)
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_BACKEND_HOST", "backend.example.com")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
backend:
  base_url: http://${TEST_BACKEND_HOST}/api
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "http://backend.example.com/api" {
		t.Errorf("backend URL = %q", cfg.Backend.BaseURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
