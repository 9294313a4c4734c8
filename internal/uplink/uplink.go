// Package uplink bridges gateway sessions onto a nats message bus.
// Every accepted command is published upstream, and each session gets
// a downlink subject other services can write commands to.
package uplink

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/seqwire/internal/protocol"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

var ErrDisconnected = errors.New("uplink: nats disconnected")

// Config selects the bus backend. Disabled means publishes vanish and
// downlink subjects are never created.
type Config struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
}

// Envelope is the JSON shape published for every accepted command.
type Envelope struct {
	SessionID    string           `json:"session_id"`
	RemoteAddr   string           `json:"remote_addr"`
	Command      string           `json:"command"`
	Payload      protocol.Command `json:"payload"`
	ReceivedAtMs int64            `json:"received_at_ms"`
}

// DownlinkHandler receives commands other services address to one
// session.
type DownlinkHandler func(cmd protocol.Command)

// Subscription is the live downlink feed for one session. *nats.Subscription
// satisfies it directly.
type Subscription interface {
	Unsubscribe() error
}

// Bus is the gateway's view of the message fabric.
type Bus interface {
	PublishCommand(env Envelope) error
	SubscribeDownlink(sessionID string, fn DownlinkHandler) (Subscription, error)
	Ping() error
	Close()
}

// New returns a nats-backed bus, or the no-op bus when the config
// disables the uplink.
func New(cfg Config) (Bus, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}
	return NewNATS(cfg)
}

// sanitizeToken keeps peer-supplied command names from breaking the
// subject grammar. nats tokens cannot contain spaces or wildcards.
func sanitizeToken(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ':
			return '_'
		}
		return r
	}, name)
}

func uplinkSubject(prefix, command string) string {
	return prefix + ".uplink." + sanitizeToken(command)
}

func downlinkSubject(prefix, sessionID string) string {
	return prefix + ".downlink." + sanitizeToken(sessionID)
}

// NATSBus publishes envelopes over a shared nats connection.
type NATSBus struct {
	conn   *nats.Conn
	prefix string
}

func NewNATS(cfg Config) (*NATSBus, error) {
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("uplink: connect %s: %w", cfg.URL, err)
	}
	prefix := strings.TrimSpace(cfg.SubjectPrefix)
	if prefix == "" {
		prefix = "seqwire"
	}
	log.Info().Str("url", cfg.URL).Str("prefix", prefix).Msg("uplink bus connected")
	return &NATSBus{conn: conn, prefix: prefix}, nil
}

func (b *NATSBus) PublishCommand(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("uplink: encode envelope: %w", err)
	}
	if err := b.conn.Publish(uplinkSubject(b.prefix, env.Command), data); err != nil {
		return fmt.Errorf("uplink: publish: %w", err)
	}
	if err := b.conn.Publish(b.prefix+".uplink.all", data); err != nil {
		return fmt.Errorf("uplink: publish: %w", err)
	}
	return nil
}

func (b *NATSBus) SubscribeDownlink(sessionID string, fn DownlinkHandler) (Subscription, error) {
	subject := downlinkSubject(b.prefix, sessionID)
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		cmd, err := protocol.DecodePayload(msg.Data)
		if err != nil {
			log.Debug().Str("subject", subject).Err(err).Msg("dropping malformed downlink command")
			return
		}
		fn(cmd)
	})
	if err != nil {
		return nil, fmt.Errorf("uplink: subscribe %s: %w", subject, err)
	}
	return sub, nil
}

func (b *NATSBus) Ping() error {
	if !b.conn.IsConnected() {
		return ErrDisconnected
	}
	return nil
}

func (b *NATSBus) Close() {
	b.conn.Close()
}

// NoopBus satisfies Bus for gateways running without a message fabric.
type NoopBus struct{}

func NewNoop() *NoopBus { return &NoopBus{} }

func (*NoopBus) PublishCommand(Envelope) error { return nil }

func (*NoopBus) SubscribeDownlink(string, DownlinkHandler) (Subscription, error) {
	return noopSubscription{}, nil
}

func (*NoopBus) Ping() error { return nil }
func (*NoopBus) Close()      {}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() error { return nil }
