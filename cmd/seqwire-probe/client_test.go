package main

import (
	"errors"
	"net"
	"testing"

	"github.com/danmuck/seqwire/internal/auth"
	"github.com/danmuck/seqwire/internal/protocol"
	"github.com/danmuck/seqwire/internal/protocol/frame"
	"github.com/danmuck/seqwire/internal/testutil/testlog"
)

func TestSplitFrames(t *testing.T) {
	testlog.Start(t)
	header := []byte("#T#")

	bodies, rest := splitFrames([]byte(`#T#{"command":"connected"}`), header)
	if len(bodies) != 1 || string(bodies[0]) != `{"command":"connected"}` {
		t.Fatalf("expected one greeting body, got %q", bodies)
	}
	if rest != nil {
		t.Fatalf("expected no tail, got %q", rest)
	}

	bodies, rest = splitFrames([]byte(`#T#{"a":1}#T#{"b":2}`), header)
	if len(bodies) != 2 || string(bodies[0]) != `{"a":1}` || string(bodies[1]) != `{"b":2}` {
		t.Fatalf("expected two bodies, got %q", bodies)
	}
	if rest != nil {
		t.Fatalf("expected no tail, got %q", rest)
	}

	bodies, rest = splitFrames([]byte(`#T#{"a":1}#T#{"b":`), header)
	if len(bodies) != 1 || string(bodies[0]) != `{"a":1}` {
		t.Fatalf("expected only the complete body, got %q", bodies)
	}
	if string(rest) != `#T#{"b":` {
		t.Fatalf("partial frame should stay pending, got %q", rest)
	}

	bodies, rest = splitFrames([]byte(`xx#T#{"a":1}`), header)
	if len(bodies) != 1 || string(bodies[0]) != `{"a":1}` {
		t.Fatalf("leading noise should be skipped, got %q", bodies)
	}
	if rest != nil {
		t.Fatalf("expected no tail after resync, got %q", rest)
	}

	bodies, rest = splitFrames([]byte(`#T#{"a":`), header)
	if len(bodies) != 0 {
		t.Fatalf("incomplete json should not produce a body, got %q", bodies)
	}
	if string(rest) != `#T#{"a":` {
		t.Fatalf("incomplete frame should stay pending, got %q", rest)
	}
}

func TestSendSignsAndAdvancesCounter(t *testing.T) {
	testlog.Start(t)
	client := newProbeClient(probeSettings{Addr: "unused", Header: "#T#", Secret: "hunter2"})
	local, remote := net.Pipe()
	client.conn = local
	defer local.Close()
	defer remote.Close()

	packets := make(chan []byte, 2)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := remote.Read(buf)
			if err != nil {
				return
			}
			packets <- append([]byte(nil), buf[:n]...)
		}
	}()

	validator := auth.SharedSecret{Secret: "hunter2", Bound: 100}

	if err := client.Send(protocol.New("status")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	payload, digest, err := frame.SplitDigest(string(<-packets))
	if err != nil {
		t.Fatalf("split first packet: %v", err)
	}
	if payload != `{"command":"status"}` {
		t.Fatalf("unexpected payload %q", payload)
	}
	matched, err := validator.Validate([]byte(payload), digest, 0)
	if err != nil || matched != 0 {
		t.Fatalf("first packet should validate at counter 0, got %d, %v", matched, err)
	}

	if err := client.Send(protocol.New("status")); err != nil {
		t.Fatalf("second send: %v", err)
	}
	payload, digest, err = frame.SplitDigest(string(<-packets))
	if err != nil {
		t.Fatalf("split second packet: %v", err)
	}
	matched, err = validator.Validate([]byte(payload), digest, 0)
	if err != nil || matched != 1 {
		t.Fatalf("second packet should validate at counter 1, got %d, %v", matched, err)
	}
}

func TestSendWhenDisconnected(t *testing.T) {
	testlog.Start(t)
	client := newProbeClient(probeSettings{Addr: "unused", Header: "#T#", Secret: "hunter2"})
	if err := client.Send(protocol.New("status")); !errors.Is(err, errNotConnected) {
		t.Fatalf("expected errNotConnected, got %v", err)
	}
}

func TestParseCommand(t *testing.T) {
	testlog.Start(t)
	cmd, err := parseCommand("status")
	if err != nil {
		t.Fatalf("bare name: %v", err)
	}
	if cmd.Name() != "status" {
		t.Fatalf("expected status, got %q", cmd.Name())
	}

	cmd, err = parseCommand(`{"command":"move","x":3}`)
	if err != nil {
		t.Fatalf("json object: %v", err)
	}
	if cmd.Name() != "move" || cmd["x"] != float64(3) {
		t.Fatalf("unexpected command %v", cmd)
	}

	if _, err := parseCommand(`{"x":3}`); err == nil {
		t.Fatalf("expected missing command key error")
	}
	if _, err := parseCommand(`{"command":`); err == nil {
		t.Fatalf("expected invalid json error")
	}
	if _, err := parseCommand("  "); err == nil {
		t.Fatalf("expected empty command error")
	}
}
