package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/seqwire/internal/config"
	"github.com/danmuck/seqwire/internal/testutil/testlog"
)

func TestResolveConfigDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := resolveConfig(nil)
	if err != nil {
		t.Fatalf("resolve defaults: %v", err)
	}
	if cfg.ListenAddr != ":7420" || cfg.AdminListenAddr != ":7421" {
		t.Fatalf("unexpected default addresses: %+v", cfg)
	}
	if cfg.Header != "" || cfg.Secret != "" {
		t.Fatalf("credentials should not default: %+v", cfg)
	}
}

func TestResolveConfigFlagOverrides(t *testing.T) {
	testlog.Start(t)
	cfg, err := resolveConfig([]string{
		"-listen", "127.0.0.1:9000",
		"-admin", "127.0.0.1:9001",
		"-header", "#x#",
		"-secret", "hunter2",
		"-debug",
	})
	if err != nil {
		t.Fatalf("resolve flags: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" || cfg.AdminListenAddr != "127.0.0.1:9001" {
		t.Fatalf("address flags not applied: %+v", cfg)
	}
	if cfg.Header != "#x#" || cfg.Secret != "hunter2" {
		t.Fatalf("credential flags not applied: %+v", cfg)
	}
	if !cfg.Debug {
		t.Fatalf("debug flag not applied")
	}
}

func TestResolveConfigFromFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteTemplate(path, "gateway", false); err != nil {
		t.Fatalf("write template: %v", err)
	}

	cfg, err := resolveConfig([]string{"-config", path})
	if err != nil {
		t.Fatalf("resolve from file: %v", err)
	}
	if cfg.Header != "#sq#" || cfg.Secret != "change-me" {
		t.Fatalf("file credentials not applied: %+v", cfg)
	}

	cfg, err = resolveConfig([]string{"-config", path, "-listen", "127.0.0.1:9000"})
	if err != nil {
		t.Fatalf("resolve with override: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("flag should win over file, got %q", cfg.ListenAddr)
	}
	if cfg.Header != "#sq#" {
		t.Fatalf("file header should survive flag overrides, got %q", cfg.Header)
	}
}

func TestResolveConfigMissingFile(t *testing.T) {
	testlog.Start(t)
	_, err := resolveConfig([]string{"-config", filepath.Join(t.TempDir(), "nope.toml")})
	if err == nil {
		t.Fatalf("expected load error")
	}
	if !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("expected load failure, got %v", err)
	}
}

func TestResolveConfigBadFlag(t *testing.T) {
	testlog.Start(t)
	if _, err := resolveConfig([]string{"-bogus"}); err == nil {
		t.Fatalf("expected flag parse error")
	}
}
