// Package registry tracks live session presence in redis so that
// operators and sibling gateways can resolve which gateway holds a
// peer. Entries expire on their own when a gateway dies without
// deregistering.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "seqwire:sess:"

// Config selects the presence backend. Disabled means every call is a
// no-op and the gateway runs standalone. GatewayID is the identity of
// the running process, not a file setting; the service fills it in.
type Config struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	GatewayID string
}

// Record is the stored presence value for one session.
type Record struct {
	GatewayID   string    `json:"gateway_id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Registry records which sessions are alive on this gateway.
type Registry interface {
	Register(ctx context.Context, id, remoteAddr string) error
	Refresh(ctx context.Context, id string) error
	Deregister(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// New returns a redis-backed registry, or the no-op registry when the
// config disables presence tracking.
func New(cfg Config) (Registry, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}
	return NewRedis(cfg)
}

func sessionKey(id string) string {
	return keyPrefix + id
}

// RedisRegistry keeps one key per live session with a rolling TTL.
type RedisRegistry struct {
	client    *redis.Client
	ttl       time.Duration
	gatewayID string
}

func NewRedis(cfg Config) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("registry: connect %s: %w", cfg.Addr, err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	log.Info().Str("addr", cfg.Addr).Dur("ttl", ttl).Msg("presence registry connected")
	return &RedisRegistry{client: client, ttl: ttl, gatewayID: cfg.GatewayID}, nil
}

func (r *RedisRegistry) Register(ctx context.Context, id, remoteAddr string) error {
	val, err := json.Marshal(Record{
		GatewayID:   r.gatewayID,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("registry: register %s: %w", id, err)
	}
	if err := r.client.Set(ctx, sessionKey(id), val, r.ttl).Err(); err != nil {
		return fmt.Errorf("registry: register %s: %w", id, err)
	}
	return nil
}

func (r *RedisRegistry) Refresh(ctx context.Context, id string) error {
	if err := r.client.Expire(ctx, sessionKey(id), r.ttl).Err(); err != nil {
		return fmt.Errorf("registry: refresh %s: %w", id, err)
	}
	return nil
}

func (r *RedisRegistry) Deregister(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("registry: deregister %s: %w", id, err)
	}
	return nil
}

func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

// NoopRegistry satisfies Registry for standalone gateways.
type NoopRegistry struct{}

func NewNoop() *NoopRegistry { return &NoopRegistry{} }

func (*NoopRegistry) Register(context.Context, string, string) error { return nil }
func (*NoopRegistry) Refresh(context.Context, string) error          { return nil }
func (*NoopRegistry) Deregister(context.Context, string) error       { return nil }
func (*NoopRegistry) Ping(context.Context) error                     { return nil }
func (*NoopRegistry) Close() error                                   { return nil }
