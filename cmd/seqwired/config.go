package main

import (
	"flag"
	"strings"

	"github.com/danmuck/seqwire/internal/config"
	"github.com/danmuck/seqwire/internal/server"
)

// resolveConfig builds the runtime settings from defaults, an optional
// gateway config file, and command line overrides. Flags win over the
// file so an operator can spot-check one knob without editing it.
func resolveConfig(args []string) (server.ServiceConfig, error) {
	fs := flag.NewFlagSet("seqwired", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to gateway config toml")
	listen := fs.String("listen", "", "session listen address override")
	admin := fs.String("admin", "", "admin listen address override")
	header := fs.String("header", "", "frame header override")
	secret := fs.String("secret", "", "shared secret override")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return server.ServiceConfig{}, err
	}

	cfg := server.DefaultServiceConfig()
	if path := strings.TrimSpace(*configPath); path != "" {
		fileCfg, err := config.LoadGatewayConfig(path)
		if err != nil {
			return server.ServiceConfig{}, err
		}
		cfg, err = config.GatewayService(fileCfg)
		if err != nil {
			return server.ServiceConfig{}, err
		}
	}

	if v := strings.TrimSpace(*listen); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(*admin); v != "" {
		cfg.AdminListenAddr = v
	}
	if *header != "" {
		cfg.Header = *header
	}
	if v := strings.TrimSpace(*secret); v != "" {
		cfg.Secret = v
	}
	if *debug {
		cfg.Debug = true
	}
	return cfg, nil
}
