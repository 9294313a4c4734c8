package session

import (
	"time"

	"github.com/danmuck/seqwire/internal/auth"
)

// Options configures one wrapped session.
type Options struct {
	// ID overrides the generated session identifier.
	ID string
	// Header prefixes every outbound frame and is scrubbed from bodies.
	Header string
	// Validator checks inbound packet digests.
	Validator auth.Validator
}

// BackoffConfig defines reconnect pacing for session clients.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultBackoff returns the stock reconnect pacing.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
}
