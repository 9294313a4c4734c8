package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/seqwire/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadGatewayConfigAppliesDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `[gateway]
header = "#sq#"
secret = "hunter2"
`)
	cfg, err := LoadGatewayConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.Listen != ":7420" {
		t.Fatalf("expected default listen :7420, got %q", cfg.Gateway.Listen)
	}
	if cfg.Gateway.AdminListen != ":7421" {
		t.Fatalf("expected default admin :7421, got %q", cfg.Gateway.AdminListen)
	}
	if cfg.Gateway.SearchBound != 100 {
		t.Fatalf("expected default search bound 100, got %d", cfg.Gateway.SearchBound)
	}
	if cfg.Gateway.ReadBuffer != 4096 {
		t.Fatalf("expected default read buffer 4096, got %d", cfg.Gateway.ReadBuffer)
	}
	if cfg.Uplink.SubjectPrefix != "seqwire" {
		t.Fatalf("expected default subject prefix, got %q", cfg.Uplink.SubjectPrefix)
	}
	if cfg.Registry.TTL != "300s" {
		t.Fatalf("expected default registry ttl, got %q", cfg.Registry.TTL)
	}
}

func TestLoadGatewayConfigReadsAllSections(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `[gateway]
listen = ":9420"
admin_listen = ":9421"
header = "#K#"
secret = "s3cret"
search_bound = 250
read_buffer = 8192
debug = true
cors_origins = ["http://localhost:3000"]

[uplink]
enabled = true
url = "nats://10.0.0.5:4222"
subject_prefix = "edge"

[registry]
enabled = true
addr = "10.0.0.6:6379"
password = "redispass"
db = 3
ttl = "90s"
`)
	cfg, err := LoadGatewayConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.Listen != ":9420" || cfg.Gateway.AdminListen != ":9421" {
		t.Fatalf("unexpected listen addrs: %+v", cfg.Gateway)
	}
	if cfg.Gateway.Header != "#K#" || cfg.Gateway.Secret != "s3cret" {
		t.Fatalf("unexpected credentials: %+v", cfg.Gateway)
	}
	if cfg.Gateway.SearchBound != 250 || cfg.Gateway.ReadBuffer != 8192 {
		t.Fatalf("unexpected tuning: %+v", cfg.Gateway)
	}
	if !cfg.Gateway.Debug {
		t.Fatalf("expected debug enabled")
	}
	if !cfg.Uplink.Enabled || cfg.Uplink.URL != "nats://10.0.0.5:4222" || cfg.Uplink.SubjectPrefix != "edge" {
		t.Fatalf("unexpected uplink: %+v", cfg.Uplink)
	}
	if !cfg.Registry.Enabled || cfg.Registry.Addr != "10.0.0.6:6379" || cfg.Registry.DB != 3 {
		t.Fatalf("unexpected registry: %+v", cfg.Registry)
	}
	ttl, err := cfg.Registry.ParseTTL()
	if err != nil {
		t.Fatalf("parse ttl: %v", err)
	}
	if ttl != 90*time.Second {
		t.Fatalf("expected 90s ttl, got %v", ttl)
	}
}

func TestLoadGatewayConfigMissingFile(t *testing.T) {
	testlog.Start(t)
	_, err := LoadGatewayConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadGatewayConfigParseError(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, "gateway = not toml [")
	_, err := LoadGatewayConfig(path)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), "config parse failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateGatewayConfig(t *testing.T) {
	testlog.Start(t)
	valid := DefaultGatewayConfig()
	valid.Gateway.Header = "#sq#"
	valid.Gateway.Secret = "hunter2"

	cases := []struct {
		name    string
		mutate  func(*GatewayConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(c *GatewayConfig) {}, wantErr: ""},
		{name: "missing header", mutate: func(c *GatewayConfig) { c.Gateway.Header = "  " }, wantErr: "missing header"},
		{name: "missing secret", mutate: func(c *GatewayConfig) { c.Gateway.Secret = "" }, wantErr: "missing secret"},
		{name: "tls without cert", mutate: func(c *GatewayConfig) {
			c.Gateway.TLS.Enabled = true
			c.Gateway.TLS.KeyFile = "k.pem"
		}, wantErr: "without cert_file"},
		{name: "tls without key", mutate: func(c *GatewayConfig) {
			c.Gateway.TLS.Enabled = true
			c.Gateway.TLS.CertFile = "c.pem"
		}, wantErr: "without key_file"},
		{name: "uplink without url", mutate: func(c *GatewayConfig) {
			c.Uplink.Enabled = true
			c.Uplink.URL = ""
		}, wantErr: "uplink enabled without url"},
		{name: "registry without addr", mutate: func(c *GatewayConfig) {
			c.Registry.Enabled = true
			c.Registry.Addr = ""
		}, wantErr: "registry enabled without addr"},
		{name: "registry bad ttl", mutate: func(c *GatewayConfig) {
			c.Registry.Enabled = true
			c.Registry.TTL = "soon"
		}, wantErr: "registry ttl"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := ValidateGatewayConfig(cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseTTL(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		ttl  string
		want time.Duration
		ok   bool
	}{
		{name: "default when empty", ttl: "", want: 300 * time.Second, ok: true},
		{name: "explicit", ttl: "2m", want: 2 * time.Minute, ok: true},
		{name: "garbage", ttl: "soon", ok: false},
		{name: "negative", ttl: "-5s", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := RegistrySection{TTL: tc.ttl}.ParseTTL()
			if tc.ok {
				if err != nil {
					t.Fatalf("expected %v, got error %v", tc.want, err)
				}
				if d != tc.want {
					t.Fatalf("expected %v, got %v", tc.want, d)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for ttl %q", tc.ttl)
			}
		})
	}
}

func TestWriteTemplateProducesLoadableConfig(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "gateway.toml")
	if err := WriteTemplate(path, "gateway", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := LoadGatewayConfig(path)
	if err != nil {
		t.Fatalf("template should load cleanly: %v", err)
	}
	if cfg.Gateway.Header == "" || cfg.Gateway.Secret == "" {
		t.Fatalf("template must fill header and secret placeholders")
	}
	if err := WriteTemplate(path, "gateway", false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if err := WriteTemplate(path, "gateway", true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
}

func TestGatewayServiceConversion(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultGatewayConfig()
	cfg.Gateway.Listen = ":9420"
	cfg.Gateway.Header = "#K#"
	cfg.Gateway.Secret = "s3cret"
	cfg.Gateway.SearchBound = 50
	cfg.Gateway.Debug = true
	cfg.Uplink.Enabled = true
	cfg.Uplink.SubjectPrefix = "edge"
	cfg.Registry.Enabled = true
	cfg.Registry.TTL = "45s"

	svc, err := GatewayService(cfg)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if svc.ListenAddr != ":9420" || svc.Header != "#K#" || svc.Secret != "s3cret" {
		t.Fatalf("unexpected service config: %+v", svc)
	}
	if svc.SearchBound != 50 || !svc.Debug {
		t.Fatalf("unexpected tuning: %+v", svc)
	}
	if !svc.Uplink.Enabled || svc.Uplink.SubjectPrefix != "edge" {
		t.Fatalf("unexpected uplink: %+v", svc.Uplink)
	}
	if !svc.Registry.Enabled || svc.Registry.TTL != 45*time.Second {
		t.Fatalf("unexpected registry: %+v", svc.Registry)
	}

	cfg.Registry.TTL = "bogus"
	if _, err := GatewayService(cfg); err == nil {
		t.Fatalf("expected ttl error to propagate")
	}
}

func TestTemplateKinds(t *testing.T) {
	testlog.Start(t)
	if _, err := Template("gateway"); err != nil {
		t.Fatalf("gateway template: %v", err)
	}
	if _, err := Template("  Probe "); err != nil {
		t.Fatalf("probe template with padding: %v", err)
	}
	if _, err := Template("relay"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestLoadProbeProfile(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
addr = "gateway.local:7420"
header = "#p#"
secret = "hunter2"
heartbeat_every = "15s"
`)
	cfg, err := LoadProbeProfile(path)
	if err != nil {
		t.Fatalf("load probe profile: %v", err)
	}
	if cfg.Addr != "gateway.local:7420" {
		t.Fatalf("expected addr gateway.local:7420, got %q", cfg.Addr)
	}
	if cfg.Header != "#p#" || cfg.Secret != "hunter2" {
		t.Fatalf("unexpected credentials: %+v", cfg)
	}
	if cfg.HeartbeatEvery != "15s" {
		t.Fatalf("expected heartbeat_every 15s, got %q", cfg.HeartbeatEvery)
	}
}

func TestValidateProbeProfile(t *testing.T) {
	testlog.Start(t)
	base := ProbeProfile{Addr: "localhost:7420", Header: "#p#", Secret: "hunter2"}
	if err := ValidateProbeProfile(base); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}
	cases := []struct {
		name   string
		mutate func(*ProbeProfile)
	}{
		{"missing addr", func(c *ProbeProfile) { c.Addr = " " }},
		{"missing header", func(c *ProbeProfile) { c.Header = "" }},
		{"missing secret", func(c *ProbeProfile) { c.Secret = "" }},
		{"bad heartbeat", func(c *ProbeProfile) { c.HeartbeatEvery = "soon" }},
	}
	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		if err := ValidateProbeProfile(cfg); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestProbeTemplateIsLoadable(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "probe.toml")
	if err := WriteTemplate(path, "probe", false); err != nil {
		t.Fatalf("write probe template: %v", err)
	}
	cfg, err := LoadProbeProfile(path)
	if err != nil {
		t.Fatalf("template should load cleanly: %v", err)
	}
	if cfg.Addr != "localhost:7420" {
		t.Fatalf("expected template addr localhost:7420, got %q", cfg.Addr)
	}
}
