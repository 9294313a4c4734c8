package config

import (
	"fmt"
	"strings"
	"time"
)

// ProbeProfile is the canonical client-side connection profile.
type ProbeProfile struct {
	Addr           string `toml:"addr"`
	Header         string `toml:"header"`
	Secret         string `toml:"secret"`
	HeartbeatEvery string `toml:"heartbeat_every"`
}

func LoadProbeProfile(path string) (ProbeProfile, error) {
	var cfg ProbeProfile
	if err := loadToml(path, &cfg); err != nil {
		return ProbeProfile{}, err
	}
	if err := ValidateProbeProfile(cfg); err != nil {
		return ProbeProfile{}, err
	}
	return cfg, nil
}

func ValidateProbeProfile(cfg ProbeProfile) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("probe profile missing addr")
	}
	if strings.TrimSpace(cfg.Header) == "" {
		return fmt.Errorf("probe profile missing header")
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return fmt.Errorf("probe profile missing secret")
	}
	if raw := strings.TrimSpace(cfg.HeartbeatEvery); raw != "" {
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("probe profile heartbeat_every %q: %w", raw, err)
		}
	}
	return nil
}
