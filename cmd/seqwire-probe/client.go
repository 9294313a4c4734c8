package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/danmuck/seqwire/internal/auth"
	"github.com/danmuck/seqwire/internal/protocol"
	"github.com/danmuck/seqwire/internal/protocol/session"
)

var errNotConnected = errors.New("probe: not connected")

// probeClient owns one gateway connection and the counter that seeds
// each outbound frame digest. The counter restarts at zero on every
// connect; the gateway opens a fresh session per connection.
type probeClient struct {
	addr    string
	header  []byte
	secret  string
	backoff session.BackoffConfig
	rng     *rand.Rand

	mu      sync.Mutex
	conn    net.Conn
	counter uint64
}

func newProbeClient(cfg probeSettings) *probeClient {
	return &probeClient{
		addr:    cfg.Addr,
		header:  []byte(cfg.Header),
		secret:  cfg.Secret,
		backoff: session.DefaultBackoff(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Connect dials the gateway, retrying with backoff, and starts the
// inbound frame reader.
func (p *probeClient) Connect(ctx context.Context, attempts int) error {
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := net.Dial("tcp", p.addr)
		if err == nil {
			p.mu.Lock()
			p.conn = conn
			p.counter = 0
			p.mu.Unlock()
			go p.readFrames(conn)
			return nil
		}
		if attempt == attempts {
			return fmt.Errorf("gateway unreachable at %s: %w", p.addr, err)
		}
		delay := p.backoff.Delay(attempt, p.rng)
		pterm.Warning.Printfln("dial %s failed (attempt %d/%d), retrying in %s",
			p.addr, attempt, attempts, delay.Round(time.Millisecond))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("gateway unreachable at %s", p.addr)
}

// Send marshals the command, appends the digest for the current
// counter, and writes one packet.
func (p *probeClient) Send(cmd protocol.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("probe: encode command: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return errNotConnected
	}
	packet := append(payload, auth.Digest(payload, p.secret, p.counter)...)
	if _, err := p.conn.Write(packet); err != nil {
		p.conn.Close()
		p.conn = nil
		return fmt.Errorf("probe: write: %w", err)
	}
	p.counter++
	return nil
}

func (p *probeClient) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// readFrames prints every inbound frame until the connection drops.
func (p *probeClient) readFrames(conn net.Conn) {
	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, err := conn.Read(buf)
		if err != nil {
			pterm.Warning.Printfln("connection to %s closed: %v", p.addr, err)
			p.mu.Lock()
			if p.conn == conn {
				p.conn = nil
			}
			p.mu.Unlock()
			return
		}
		pending = append(pending, buf[:n]...)
		var bodies [][]byte
		bodies, pending = splitFrames(pending, p.header)
		for _, body := range bodies {
			pterm.Info.Printfln("<< %s", body)
		}
	}
}

// splitFrames consumes complete frames from buf and returns their
// bodies plus the unconsumed tail. The gateway prefixes every frame
// with the header and scrubs the header token from bodies, so the next
// header always marks a frame boundary. A trailing body with no
// successor is complete once it parses as JSON.
func splitFrames(buf, header []byte) ([][]byte, []byte) {
	if len(header) == 0 {
		return nil, buf
	}
	var bodies [][]byte
	for {
		if len(buf) == 0 {
			return bodies, nil
		}
		if !bytes.HasPrefix(buf, header) {
			idx := bytes.Index(buf, header)
			if idx < 0 {
				return bodies, buf
			}
			buf = buf[idx:]
			continue
		}
		rest := buf[len(header):]
		if idx := bytes.Index(rest, header); idx >= 0 {
			if idx > 0 {
				bodies = append(bodies, rest[:idx])
			}
			buf = rest[idx:]
			continue
		}
		if len(rest) > 0 && json.Valid(rest) {
			bodies = append(bodies, rest)
			return bodies, nil
		}
		return bodies, buf
	}
}
