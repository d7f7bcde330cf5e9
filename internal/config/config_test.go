package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TickPeriod != 5*time.Second {
		t.Errorf("TickPeriod = %v, want 5s", cfg.TickPeriod)
	}
	if cfg.PullOverlap != 30*time.Second {
		t.Errorf("PullOverlap = %v, want 30s", cfg.PullOverlap)
	}
	if cfg.StoragePrefix != "health" {
		t.Errorf("StoragePrefix = %q, want health", cfg.StoragePrefix)
	}
	if cfg.APIURL != "" || cfg.APIToken != "" {
		t.Errorf("API config should default to unset, got %q / %q", cfg.APIURL, cfg.APIToken)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "api_url: https://health.example.com\napi_token: secret\ntick_period: 10s\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "https://health.example.com" || cfg.APIToken != "secret" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TickPeriod != 10*time.Second {
		t.Errorf("TickPeriod = %v, want 10s", cfg.TickPeriod)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_url: [unclosed\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load of malformed file should fail")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SYMTRACK_API_TOKEN", "from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIToken != "from-env" {
		t.Errorf("APIToken = %q, want env override", cfg.APIToken)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api_url: https://one.example.com\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()

	reloaded := make(chan Config, 1)
	if err := w.Start(context.Background(), func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("api_url: https://two.example.com\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.APIURL != "https://two.example.com" {
			t.Errorf("reloaded APIURL = %q", cfg.APIURL)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
