// Package server owns the gateway runtime. It accepts peer sockets,
// wraps each one in a protocol session, and exposes the admin plane
// for operators. Ownership boundary:
//   - accept loop and per-connection read loop
//   - session table, presence registry and uplink wiring
//   - admin HTTP surface and live event feed
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/seqwire/internal/auth"
	"github.com/danmuck/seqwire/internal/observability"
	"github.com/danmuck/seqwire/internal/protocol"
	"github.com/danmuck/seqwire/internal/protocol/session"
	"github.com/danmuck/seqwire/internal/registry"
	"github.com/danmuck/seqwire/internal/uplink"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Gateway session endpoint configuration.
type ServiceConfig struct {
	ListenAddr      string
	AdminListenAddr string
	Header          string
	Secret          string
	SearchBound     int
	ReadBuffer      int
	Debug           bool
	CorsOrigins     []string
	TLS             TLSConfig
	Uplink          uplink.Config
	Registry        registry.Config
}

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// Gateway service defaults for the session endpoint.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:      ":7420",
		AdminListenAddr: ":7421",
		SearchBound:     auth.DefaultSearchBound,
		ReadBuffer:      4096,
	}
}

// Gateway runtime service owning the accept loop, the session table
// and the admin plane.
type Service struct {
	cfg ServiceConfig
	id  string

	sessions *SessionTable
	feed     *FeedHub
	presence registry.Registry
	bus      uplink.Bus

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	startedAt          time.Time
	sessionClientCount atomic.Int64
}

// NewServiceWithConfig validates credentials and builds a standalone
// service. Presence and uplink backends connect in Run; until then
// both are no-ops, which is what tests and embedded use want.
func NewServiceWithConfig(cfg ServiceConfig) (*Service, error) {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = DefaultServiceConfig().ListenAddr
	}
	if cfg.SearchBound <= 0 {
		cfg.SearchBound = auth.DefaultSearchBound
	}
	if cfg.ReadBuffer <= 0 {
		cfg.ReadBuffer = DefaultServiceConfig().ReadBuffer
	}
	if cfg.Header == "" {
		return nil, fmt.Errorf("server: config missing frame header")
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("server: config missing shared secret")
	}
	observability.RegisterMetrics()
	return &Service{
		cfg:       cfg,
		id:        uuid.NewString(),
		sessions:  NewSessionTable(),
		feed:      NewFeedHub(),
		presence:  registry.NewNoop(),
		bus:       uplink.NewNoop(),
		conns:     make(map[net.Conn]struct{}),
		startedAt: time.Now(),
	}, nil
}

// Sessions returns the live session table.
func (s *Service) Sessions() *SessionTable {
	return s.sessions
}

// GatewayID is this process instance's identity, stamped into presence
// records and the health report.
func (s *Service) GatewayID() string {
	return s.id
}

// Gateway runtime entrypoint that blocks until signal shutdown.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.cfg.Registry.GatewayID = s.id
	presence, err := registry.New(s.cfg.Registry)
	if err != nil {
		return err
	}
	s.presence = presence
	defer func() { _ = s.presence.Close() }()

	bus, err := uplink.New(s.cfg.Uplink)
	if err != nil {
		return err
	}
	s.bus = bus
	defer s.bus.Close()

	go s.feed.Run(ctx)

	ln, err := s.listen()
	if err != nil {
		return err
	}
	log.Info().
		Str("gateway_id", s.id).
		Str("addr", ln.Addr().String()).
		Bool("tls", s.cfg.TLS.Enabled).
		Msg("gateway listening")

	adminErr := make(chan error, 1)
	if strings.TrimSpace(s.cfg.AdminListenAddr) != "" {
		go func() {
			adminErr <- s.serveAdmin(ctx, strings.TrimSpace(s.cfg.AdminListenAddr))
		}()
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(ctx, ln)
	}()
	select {
	case err := <-serveErr:
		return err
	case err := <-adminErr:
		if err != nil {
			return err
		}
		return <-serveErr
	}
}

// Listener builder for TCP or TLS based on transport settings.
func (s *Service) listen() (net.Listener, error) {
	if !s.cfg.TLS.Enabled {
		return net.Listen("tcp", s.cfg.ListenAddr)
	}
	tlsCfg, err := s.serverTLSConfig()
	if err != nil {
		return nil, err
	}
	return tls.Listen("tcp", s.cfg.ListenAddr, tlsCfg)
}

func (s *Service) serverTLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("server: load tls keypair: %w", err)
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}, nil
}

// Accept loop for peer sessions on an existing listener.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.handleConn(conn)
	}
}

// netTransport adapts a net.Conn to the session transport contract.
type netTransport struct {
	net.Conn
}

func (t netTransport) RemoteAddr() string {
	return t.Conn.RemoteAddr().String()
}

// Connection handler owning the read loop for one peer. Each read is
// one packet; the session decides whether it survives.
func (s *Service) handleConn(conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)
	remote := conn.RemoteAddr().String()
	active := s.sessionClientCount.Add(1)
	log.Info().Str("remote", remote).Int64("active_clients", active).Msg("peer connected")
	defer func() {
		remaining := s.sessionClientCount.Add(-1)
		log.Info().Str("remote", remote).Int64("active_clients", remaining).Msg("peer disconnected")
	}()

	sess, err := session.New(netTransport{conn}, session.Options{
		Header: s.cfg.Header,
		Validator: auth.SharedSecret{
			Secret: s.cfg.Secret,
			Bound:  s.cfg.SearchBound,
		},
	})
	if err != nil {
		log.Warn().Str("remote", remote).Err(err).Msg("session start failed")
		return
	}
	s.attachSession(sess)

	buf := make([]byte, s.cfg.ReadBuffer)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			sess.Destroy()
			return
		}
		if n == 0 {
			continue
		}
		if err := sess.Receive(buf[:n]); err != nil {
			return
		}
	}
}

// attachSession wires one live session into the table, the presence
// registry, the uplink bus and the admin feed.
func (s *Service) attachSession(sess *session.Conn) {
	id := sess.ID()
	remote := sess.RemoteAddr()

	sub, err := s.bus.SubscribeDownlink(id, func(cmd protocol.Command) {
		if err := sess.SendCommand(cmd); err != nil {
			log.Debug().Str("session_id", id).Err(err).Msg("downlink send failed")
		}
	})
	if err != nil {
		log.Warn().Str("session_id", id).Err(err).Msg("downlink subscribe failed")
		sub = nil
	}

	sess.OnClose(func(c *session.Conn) {
		s.sessions.Remove(id)
		observability.RecordSessionClosed()
		if sub != nil {
			_ = sub.Unsubscribe()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.presence.Deregister(ctx, id); err != nil {
			log.Warn().Str("session_id", id).Err(err).Msg("presence deregister failed")
		}
		s.feed.Broadcast(FeedEvent{
			Type:       FeedSessionDestroyed,
			SessionID:  id,
			RemoteAddr: remote,
			AtMs:       time.Now().UnixMilli(),
		})
	})
	sess.Subscribe(s.observeCommand)

	s.sessions.Add(sess)
	observability.RecordSessionOpened()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.presence.Register(ctx, id, remote); err != nil {
		log.Warn().Str("session_id", id).Err(err).Msg("presence register failed")
	}
	s.feed.Broadcast(FeedEvent{
		Type:       FeedSessionConnected,
		SessionID:  id,
		RemoteAddr: remote,
		AtMs:       time.Now().UnixMilli(),
	})
	log.Info().Str("session_id", id).Str("remote", remote).Msg("session established")
}

// observeCommand forwards one accepted command to the feed, refreshes
// presence and publishes the uplink envelope.
func (s *Service) observeCommand(c *session.Conn, cmd protocol.Command) {
	id := c.ID()
	now := time.Now()
	s.feed.Broadcast(FeedEvent{
		Type:      FeedCommandReceived,
		SessionID: id,
		Command:   cmd.Name(),
		Payload:   cmd,
		AtMs:      now.UnixMilli(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.presence.Refresh(ctx, id); err != nil {
		log.Debug().Str("session_id", id).Err(err).Msg("presence refresh failed")
	}
	env := uplink.Envelope{
		SessionID:    id,
		RemoteAddr:   c.RemoteAddr(),
		Command:      cmd.Name(),
		Payload:      cmd,
		ReceivedAtMs: now.UnixMilli(),
	}
	if err := s.bus.PublishCommand(env); err != nil {
		log.Warn().Str("session_id", id).Err(err).Msg("uplink publish failed")
	}
}

// Connection-tracking add operation before the handler goroutine runs.
func (s *Service) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

// Connection-tracking remove operation after connection teardown.
func (s *Service) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

// Shutdown helper that closes and drains tracked active connections.
func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}
