package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// GatewayConfig is the canonical on-disk configuration for one gateway.
type GatewayConfig struct {
	Gateway  GatewaySection  `toml:"gateway"`
	Uplink   UplinkSection   `toml:"uplink"`
	Registry RegistrySection `toml:"registry"`
}

type GatewaySection struct {
	Listen      string     `toml:"listen"`
	AdminListen string     `toml:"admin_listen"`
	Header      string     `toml:"header"`
	Secret      string     `toml:"secret"`
	SearchBound int        `toml:"search_bound"`
	ReadBuffer  int        `toml:"read_buffer"`
	Debug       bool       `toml:"debug"`
	CorsOrigins []string   `toml:"cors_origins"`
	TLS         TLSSection `toml:"tls"`
}

type TLSSection struct {
	Enabled  bool   `toml:"enabled"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

type UplinkSection struct {
	Enabled       bool   `toml:"enabled"`
	URL           string `toml:"url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

type RegistrySection struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	TTL      string `toml:"ttl"`
}

// DefaultGatewayConfig returns the stock settings. The frame header and
// shared secret carry no default; both must come from the operator.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Gateway: GatewaySection{
			Listen:      ":7420",
			AdminListen: ":7421",
			SearchBound: 100,
			ReadBuffer:  4096,
		},
		Uplink: UplinkSection{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "seqwire",
		},
		Registry: RegistrySection{
			Addr: "127.0.0.1:6379",
			TTL:  "300s",
		},
	}
}

func LoadGatewayConfig(path string) (GatewayConfig, error) {
	cfg := DefaultGatewayConfig()
	if err := loadToml(path, &cfg); err != nil {
		return GatewayConfig{}, err
	}
	if strings.TrimSpace(cfg.Gateway.Listen) == "" {
		cfg.Gateway.Listen = ":7420"
	}
	if strings.TrimSpace(cfg.Gateway.AdminListen) == "" {
		cfg.Gateway.AdminListen = ":7421"
	}
	if cfg.Gateway.SearchBound <= 0 {
		cfg.Gateway.SearchBound = 100
	}
	if cfg.Gateway.ReadBuffer <= 0 {
		cfg.Gateway.ReadBuffer = 4096
	}
	if strings.TrimSpace(cfg.Uplink.SubjectPrefix) == "" {
		cfg.Uplink.SubjectPrefix = "seqwire"
	}
	if strings.TrimSpace(cfg.Registry.TTL) == "" {
		cfg.Registry.TTL = "300s"
	}
	if err := ValidateGatewayConfig(cfg); err != nil {
		return GatewayConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateGatewayConfig(cfg GatewayConfig) error {
	if strings.TrimSpace(cfg.Gateway.Header) == "" {
		return fmt.Errorf("gateway config missing header")
	}
	if strings.TrimSpace(cfg.Gateway.Secret) == "" {
		return fmt.Errorf("gateway config missing secret")
	}
	if strings.TrimSpace(cfg.Gateway.Listen) == "" {
		return fmt.Errorf("gateway config missing listen")
	}
	if cfg.Gateway.TLS.Enabled {
		if strings.TrimSpace(cfg.Gateway.TLS.CertFile) == "" {
			return fmt.Errorf("gateway config tls enabled without cert_file")
		}
		if strings.TrimSpace(cfg.Gateway.TLS.KeyFile) == "" {
			return fmt.Errorf("gateway config tls enabled without key_file")
		}
	}
	if cfg.Uplink.Enabled && strings.TrimSpace(cfg.Uplink.URL) == "" {
		return fmt.Errorf("uplink enabled without url")
	}
	if cfg.Registry.Enabled {
		if strings.TrimSpace(cfg.Registry.Addr) == "" {
			return fmt.Errorf("registry enabled without addr")
		}
		if _, err := cfg.Registry.ParseTTL(); err != nil {
			return err
		}
	}
	return nil
}

// ParseTTL reads the registry expiry, defaulting to 300s when unset.
func (r RegistrySection) ParseTTL() (time.Duration, error) {
	raw := strings.TrimSpace(r.TTL)
	if raw == "" {
		return 300 * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("registry ttl %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("registry ttl must be positive, got %q", raw)
	}
	return d, nil
}
