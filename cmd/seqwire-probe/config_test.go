package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/seqwire/internal/testutil/testlog"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "probe.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoadSettingsPartialOverlay(t *testing.T) {
	testlog.Start(t)
	path := writeProfile(t, `addr = "gateway.local:7420"`)
	cfg, err := loadSettings(path)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if cfg.Addr != "gateway.local:7420" {
		t.Fatalf("expected overlaid addr, got %q", cfg.Addr)
	}
	if cfg.Header != "" || cfg.Secret != "" {
		t.Fatalf("undefined keys should stay empty: %+v", cfg)
	}
	if cfg.HeartbeatEvery != 0 {
		t.Fatalf("expected zero heartbeat, got %s", cfg.HeartbeatEvery)
	}
}

func TestLoadSettingsFullProfile(t *testing.T) {
	testlog.Start(t)
	path := writeProfile(t, `
addr = "127.0.0.1:9000"
header = "#p#"
secret = "hunter2"
heartbeat_every = "30s"
`)
	cfg, err := loadSettings(path)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.Header != "#p#" || cfg.Secret != "hunter2" {
		t.Fatalf("unexpected settings: %+v", cfg)
	}
	if cfg.HeartbeatEvery != 30*time.Second {
		t.Fatalf("expected 30s heartbeat, got %s", cfg.HeartbeatEvery)
	}
}

func TestLoadSettingsBadDuration(t *testing.T) {
	testlog.Start(t)
	path := writeProfile(t, `heartbeat_every = "soon"`)
	if _, err := loadSettings(path); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := loadSettings(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected load error")
	}
}
