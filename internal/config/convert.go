package config

import (
	"github.com/danmuck/seqwire/internal/registry"
	"github.com/danmuck/seqwire/internal/server"
	"github.com/danmuck/seqwire/internal/uplink"
)

// GatewayService maps the file schema onto runtime service settings.
// The config must already have passed ValidateGatewayConfig.
func GatewayService(cfg GatewayConfig) (server.ServiceConfig, error) {
	ttl, err := cfg.Registry.ParseTTL()
	if err != nil {
		return server.ServiceConfig{}, err
	}
	out := server.DefaultServiceConfig()
	out.ListenAddr = cfg.Gateway.Listen
	out.AdminListenAddr = cfg.Gateway.AdminListen
	out.Header = cfg.Gateway.Header
	out.Secret = cfg.Gateway.Secret
	out.SearchBound = cfg.Gateway.SearchBound
	out.ReadBuffer = cfg.Gateway.ReadBuffer
	out.Debug = cfg.Gateway.Debug
	out.CorsOrigins = append([]string(nil), cfg.Gateway.CorsOrigins...)
	out.TLS = server.TLSConfig{
		Enabled:  cfg.Gateway.TLS.Enabled,
		CertFile: cfg.Gateway.TLS.CertFile,
		KeyFile:  cfg.Gateway.TLS.KeyFile,
	}
	out.Uplink = uplink.Config{
		Enabled:       cfg.Uplink.Enabled,
		URL:           cfg.Uplink.URL,
		SubjectPrefix: cfg.Uplink.SubjectPrefix,
	}
	out.Registry = registry.Config{
		Enabled:  cfg.Registry.Enabled,
		Addr:     cfg.Registry.Addr,
		Password: cfg.Registry.Password,
		DB:       cfg.Registry.DB,
		TTL:      ttl,
	}
	return out, nil
}
