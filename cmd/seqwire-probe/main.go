// Seqwire probe, an interactive gateway client.
//
// The probe dials a seqwire gateway over TCP, signs outbound commands
// with the shared-secret digest, and prints every inbound frame. It can
// be launched interactively (no -command flag) or non-interactively via
// -command for one-shot sends.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/danmuck/seqwire/internal/protocol"
)

var version = "0.0.1"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	configPath := flag.String("config", "", "path to probe profile toml")
	addr := flag.String("addr", "", "gateway address override")
	header := flag.String("header", "", "frame header override")
	secret := flag.String("secret", "", "shared secret override")
	command := flag.String("command", "", "send one command and exit")
	heartbeat := flag.Duration("heartbeat", 0, "send ping commands at this interval")
	debugMode := flag.Bool("debug", false, "enable debug output")
	flag.Parse()

	if *debugMode {
		pterm.EnableDebugMessages()
	}

	pterm.Info.Println(fmt.Sprintf("seqwire probe v%s", version))
	pterm.Println()

	cfg := defaultSettings()
	if path := strings.TrimSpace(*configPath); path != "" {
		loaded, err := loadSettings(path)
		if err != nil {
			pterm.Error.Printfln("%v", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if v := strings.TrimSpace(*addr); v != "" {
		cfg.Addr = v
	}
	if *header != "" {
		cfg.Header = *header
	}
	if *secret != "" {
		cfg.Secret = *secret
	}
	if *heartbeat > 0 {
		cfg.HeartbeatEvery = *heartbeat
	}

	oneShot := strings.TrimSpace(*command) != ""
	if cfg.Header == "" {
		if oneShot {
			pterm.Error.Println("missing frame header: set -header or the profile header key")
			os.Exit(1)
		}
		cfg.Header = askRequired("Frame header (must match the gateway)")
	}
	if cfg.Secret == "" {
		if oneShot {
			pterm.Error.Println("missing shared secret: set -secret or the profile secret key")
			os.Exit(1)
		}
		cfg.Secret = askRequired("Shared secret (must match the gateway)")
	}

	client := newProbeClient(cfg)
	defer client.Close()

	if err := client.Connect(ctx, 5); err != nil {
		pterm.Error.Printfln("%v", err)
		os.Exit(1)
	}
	pterm.Success.Printfln("connected to %s", cfg.Addr)
	pterm.Println()

	if oneShot {
		runOneShot(client, *command)
		return
	}
	runInteractive(ctx, client, cfg)
}

// runOneShot sends a single command and waits briefly so the response
// frames get printed before exit.
func runOneShot(client *probeClient, raw string) {
	cmd, err := parseCommand(raw)
	if err != nil {
		pterm.Error.Printfln("%v", err)
		os.Exit(1)
	}
	if err := client.Send(cmd); err != nil {
		pterm.Error.Printfln("send failed: %v", err)
		os.Exit(1)
	}
	pterm.Debug.Printfln(">> %s", cmd.Name())
	time.Sleep(1500 * time.Millisecond)
}

// runInteractive loops on an action menu until quit or Ctrl+C. A failed
// send falls back to a reconnect cycle; the user re-picks the action.
func runInteractive(ctx context.Context, client *probeClient, cfg probeSettings) {
	if cfg.HeartbeatEvery > 0 {
		go runHeartbeat(ctx, client, cfg.HeartbeatEvery)
	}

	for {
		if ctx.Err() != nil {
			return
		}
		action, _ := pterm.DefaultInteractiveSelect.
			WithOptions([]string{"ping", "named command", "raw JSON", "burst", "quit"}).
			WithDefaultText("Select an action").
			Show()
		pterm.Println()

		var err error
		switch action {
		case "ping":
			err = client.Send(protocol.New("ping"))
		case "named command":
			err = client.Send(protocol.New(askRequired("Command name")))
		case "raw JSON":
			err = sendRaw(client)
		case "burst":
			err = sendBurst(client)
		default:
			pterm.Info.Println("bye")
			return
		}
		if err == nil {
			continue
		}
		pterm.Warning.Printfln("send failed: %v", err)
		if err := client.Connect(ctx, 5); err != nil {
			pterm.Error.Printfln("%v", err)
			return
		}
		pterm.Success.Printfln("reconnected to %s", cfg.Addr)
	}
}

// sendRaw prompts for a complete command object and sends it. Parse
// problems are reported and swallowed so the menu comes back.
func sendRaw(client *probeClient) error {
	raw, _ := pterm.DefaultInteractiveTextInput.
		WithDefaultText("Command JSON object").
		Show()
	cmd, err := parseCommand(raw)
	if err != nil {
		pterm.Warning.Printfln("%v", err)
		return nil
	}
	return client.Send(cmd)
}

// sendBurst fires a run of pings to walk the counter forward.
func sendBurst(client *probeClient) error {
	count := askCount("How many pings (1 ~ 500)")
	for i := 0; i < count; i++ {
		if err := client.Send(protocol.New("ping")); err != nil {
			return err
		}
	}
	pterm.Success.Printfln("sent %d pings", count)
	return nil
}

// runHeartbeat sends a ping on every tick until the context ends.
func runHeartbeat(ctx context.Context, client *probeClient, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Send(protocol.New("ping")); err != nil {
				pterm.Debug.Printfln("heartbeat skipped: %v", err)
			}
		}
	}
}

// parseCommand accepts either a bare command name or a full JSON
// object with a command key.
func parseCommand(raw string) (protocol.Command, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty command")
	}
	if strings.HasPrefix(raw, "{") {
		var cmd protocol.Command
		if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
			return nil, fmt.Errorf("invalid command json: %w", err)
		}
		if strings.TrimSpace(cmd.Name()) == "" {
			return nil, fmt.Errorf("command json missing command key")
		}
		return cmd, nil
	}
	return protocol.New(raw), nil
}

// askRequired prompts until a non-empty value is entered.
func askRequired(prompt string) string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()
		if v := strings.TrimSpace(raw); v != "" {
			pterm.Println()
			return v
		}
		pterm.Warning.Println("a value is required")
		pterm.Println()
	}
}

// askCount prompts for a burst size until a valid one is entered.
func askCount(prompt string) int {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && n >= 1 && n <= 500 {
			pterm.Println()
			return n
		}
		pterm.Warning.Println("invalid count: must be 1 ~ 500")
		pterm.Println()
	}
}
