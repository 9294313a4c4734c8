package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// profileConfig mirrors the probe profile file. Every key is optional;
// loadSettings only overlays the ones the file actually defines.
type profileConfig struct {
	Addr           string `toml:"addr"`
	Header         string `toml:"header"`
	Secret         string `toml:"secret"`
	HeartbeatEvery string `toml:"heartbeat_every"`
}

type probeSettings struct {
	Addr           string
	Header         string
	Secret         string
	HeartbeatEvery time.Duration
}

func defaultSettings() probeSettings {
	return probeSettings{
		Addr: "localhost:7420",
	}
}

// loadSettings overlays a profile file onto the defaults. The header is
// taken verbatim; the gateway matches it byte for byte.
func loadSettings(path string) (probeSettings, error) {
	cfg := defaultSettings()

	var raw profileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return probeSettings{}, fmt.Errorf("load probe profile (%s): %w", path, err)
	}

	if meta.IsDefined("addr") {
		if v := strings.TrimSpace(raw.Addr); v != "" {
			cfg.Addr = v
		}
	}
	if meta.IsDefined("header") {
		cfg.Header = raw.Header
	}
	if meta.IsDefined("secret") {
		cfg.Secret = raw.Secret
	}
	if meta.IsDefined("heartbeat_every") {
		v := strings.TrimSpace(raw.HeartbeatEvery)
		if v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return probeSettings{}, fmt.Errorf("probe profile heartbeat_every %q: %w", raw.HeartbeatEvery, err)
			}
			cfg.HeartbeatEvery = d
		}
	}
	return cfg, nil
}
