package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/seqwire/internal/auth"
	"github.com/danmuck/seqwire/internal/observability"
	"github.com/danmuck/seqwire/internal/protocol"
	"github.com/danmuck/seqwire/internal/protocol/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrDestroyed   = errors.New("session: destroyed")
	ErrIntegrity   = errors.New("session: packet failed integrity validation")
	ErrNotTickMode = errors.New("session: tick outside tick mode")
)

// Transport is the byte stream a session owns. net.Conn adapts to it; tests
// use in-memory fakes.
type Transport interface {
	Write(p []byte) (int, error)
	Close() error
	RemoteAddr() string
}

// Handler observes one validated inbound command.
type Handler func(*Conn, protocol.Command)

// CloseFunc runs when a session is destroyed.
type CloseFunc func(*Conn)

// Snapshot is a read-only view of one session for admin surfaces.
type Snapshot struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	CreatedAt  time.Time `json:"created_at"`
	Counter    uint64    `json:"counter"`
	Received   uint64    `json:"received"`
	Sent       uint64    `json:"sent"`
	TickMode   bool      `json:"tick_mode"`
	Queued     int       `json:"queued"`
	Destroyed  bool      `json:"destroyed"`
}

// Conn wraps one accepted peer transport. All mutable state sits behind the
// mutex; it is shared between the reader goroutine and any goroutine that
// sends, ticks, or destroys.
type Conn struct {
	id        string
	createdAt time.Time
	transport Transport
	validator auth.Validator
	header    string

	mu        sync.Mutex
	counter   uint64
	received  uint64
	sent      uint64
	store     map[string]any
	handlers  []Handler
	closers   []CloseFunc
	queue     []protocol.Command
	tickMode  bool
	destroyed bool
}

// New wraps an accepted transport and announces the greeting. A greeting
// that fails to write destroys the session and surfaces the error.
func New(transport Transport, opts Options) (*Conn, error) {
	if transport == nil {
		return nil, errors.New("session: nil transport")
	}
	if opts.Validator == nil {
		return nil, errors.New("session: nil validator")
	}
	if opts.Header == "" {
		return nil, protocol.ErrNoHeader
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	c := &Conn{
		id:        id,
		createdAt: time.Now(),
		transport: transport,
		validator: opts.Validator,
		header:    opts.Header,
		store:     make(map[string]any),
	}
	if err := c.SendCommand(protocol.New(protocol.CmdConnected)); err != nil {
		c.Destroy()
		return nil, fmt.Errorf("session: greeting: %w", err)
	}
	return c, nil
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) CreatedAt() time.Time { return c.createdAt }

func (c *Conn) RemoteAddr() string { return c.transport.RemoteAddr() }

// Receive processes one raw transport read: framing, digest validation,
// decode, then handler dispatch in registration order. Integrity failures
// destroy the session and surface ErrIntegrity. Payloads that carry a
// valid digest but do not decode to a command object are dropped with the
// session left open. Handlers run outside the session lock; panics are
// not recovered here.
func (c *Conn) Receive(raw []byte) error {
	packet := frame.ExtractPacket(raw)
	payload, digest, err := frame.SplitDigest(packet)
	if err != nil {
		observability.RecordFrameReceived(observability.OutcomeIntegrity)
		log.Warn().Str("session_id", c.id).Err(err).Msg("packet failed integrity validation")
		c.Destroy()
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	windowStart := c.counter
	accepted, err := c.validator.Validate([]byte(payload), digest, windowStart)
	if err != nil {
		c.mu.Unlock()
		observability.RecordFrameReceived(observability.OutcomeIntegrity)
		log.Warn().
			Str("session_id", c.id).
			Uint64("window_start", windowStart).
			Int("payload_len", len(payload)).
			Err(err).
			Msg("packet failed integrity validation")
		c.Destroy()
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	observability.RecordDigestSearchDepth(float64(accepted - windowStart))
	c.counter = accepted
	handlers := append([]Handler(nil), c.handlers...)
	c.mu.Unlock()

	cmd, err := protocol.DecodePayload([]byte(payload))
	if err != nil {
		observability.RecordFrameReceived(observability.OutcomeDecodeError)
		log.Debug().Str("session_id", c.id).Msg("dropping unparseable payload")
		return nil
	}

	c.mu.Lock()
	c.received++
	c.mu.Unlock()
	observability.RecordFrameReceived(observability.OutcomeValid)

	for _, h := range handlers {
		h(c, cmd)
	}
	return nil
}

// SendCommand delivers cmd to the peer immediately, or queues it while the
// session is in tick mode. Queued batch envelopes flatten one level.
func (c *Conn) SendCommand(cmd protocol.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	if c.tickMode {
		if cmd.IsBatch() {
			c.queue = append(c.queue, cmd.BatchCommands()...)
		} else {
			c.queue = append(c.queue, cmd)
		}
		return nil
	}
	return c.writeLocked(cmd)
}

// SendNamed sends a copy of data carrying name under the command key. A
// nil data map is allowed.
func (c *Conn) SendNamed(name string, data map[string]any) error {
	cmd := make(protocol.Command, len(data)+1)
	for k, v := range data {
		cmd[k] = v
	}
	cmd["command"] = name
	return c.SendCommand(cmd)
}

func (c *Conn) writeLocked(cmd protocol.Command) error {
	out, err := protocol.EncodeFrame(c.header, cmd)
	if err != nil {
		return err
	}
	if _, err := c.transport.Write(out); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	c.sent++
	if cmd.IsBatch() {
		observability.RecordFrameSent(observability.FrameBatch)
	} else {
		observability.RecordFrameSent(observability.FrameDirect)
	}
	return nil
}

// SetTickMode toggles outbound queueing. Leaving tick mode keeps queued
// commands in place; they flush on the next Tick after it is re-enabled.
func (c *Conn) SetTickMode(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickMode = on
}

// TickMode reports whether outbound commands are being queued.
func (c *Conn) TickMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickMode
}

// Tick flushes every queued command as one batch frame. An empty queue
// writes nothing. The queue is surrendered before the write, so a failed
// flush does not retry its commands.
func (c *Conn) Tick() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	if !c.tickMode {
		return ErrNotTickMode
	}
	if len(c.queue) == 0 {
		return nil
	}
	batch := protocol.NewBatch(c.queue)
	size := len(c.queue)
	c.queue = nil
	if err := c.writeLocked(batch); err != nil {
		return err
	}
	observability.RecordBatchFlush(float64(size))
	return nil
}

// QueueLen reports how many commands wait for the next tick.
func (c *Conn) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Counter returns the current validation counter position.
func (c *Conn) Counter() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter
}

// Subscribe appends a handler invoked for every validated inbound command.
func (c *Conn) Subscribe(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// OnClose registers fn to run at destruction. Registering on an already
// destroyed session runs fn at once.
func (c *Conn) OnClose(fn CloseFunc) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		fn(c)
		return
	}
	c.closers = append(c.closers, fn)
	c.mu.Unlock()
}

// Destroy tears the session down. The transport closes exactly once and
// close hooks run exactly once, in registration order. Safe to call
// repeatedly and from handlers.
func (c *Conn) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	_ = c.transport.Close()
	for _, fn := range closers {
		fn(c)
	}
}

// Destroyed reports whether the session has been torn down.
func (c *Conn) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Snapshot captures the session state for admin surfaces.
func (c *Conn) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:         c.id,
		RemoteAddr: c.transport.RemoteAddr(),
		CreatedAt:  c.createdAt,
		Counter:    c.counter,
		Received:   c.received,
		Sent:       c.sent,
		TickMode:   c.tickMode,
		Queued:     len(c.queue),
		Destroyed:  c.destroyed,
	}
}

func (c *Conn) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}

func (c *Conn) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	return v, ok
}

func (c *Conn) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

// StoreKeys lists stored keys in stable order.
func (c *Conn) StoreKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.store))
	for k := range c.store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
