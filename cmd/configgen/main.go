package main

import (
	"flag"
	"log"

	"github.com/danmuck/seqwire/internal/config"
)

func defaultPath(kind string) string {
	switch kind {
	case "gateway":
		return "cmd/seqwired/config.toml"
	case "probe":
		return "cmd/seqwire-probe/probe.toml"
	}
	log.Fatalf("unknown kind: %s", kind)
	return ""
}

func validateConfig(kind, path string) error {
	switch kind {
	case "gateway":
		_, err := config.LoadGatewayConfig(path)
		return err
	case "probe":
		_, err := config.LoadProbeProfile(path)
		return err
	}
	log.Fatalf("unknown kind: %s", kind)
	return nil
}

func main() {
	kind := flag.String("kind", "gateway", "config kind: gateway|probe")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		if err := validateConfig(*kind, path); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
