package main

import (
	"fmt"
	"os"

	"github.com/danmuck/seqwire/internal/logging"
	"github.com/danmuck/seqwire/internal/server"
)

func main() {
	cfg, err := resolveConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "seqwired: %v\n", err)
		os.Exit(1)
	}
	logging.Init("seqwired", cfg.Debug)

	svc, err := server.NewServiceWithConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seqwired: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "seqwired: %v\n", err)
		os.Exit(1)
	}
}
