// Package auth implements the rolling-counter packet digest.
//
// It intentionally avoids transport and session concerns; callers own the
// counter value and feed the accepted one back on the next validation.
package auth

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"strconv"
)

// DefaultSearchBound is the number of counter values probed when a
// validator is not configured with an explicit bound.
const DefaultSearchBound = 100

var (
	ErrNoSecret       = errors.New("auth: no shared secret configured")
	ErrDigestMismatch = errors.New("auth: digest did not match any counter in window")
)

// Digest computes the packet digest for one counter value: the lowercase
// hex SHA-1 of the payload, the shared secret, and the counter rendered in
// decimal, concatenated in that order.
func Digest(payload []byte, secret string, counter uint64) string {
	h := sha1.New()
	h.Write(payload)
	io.WriteString(h, secret)
	io.WriteString(h, strconv.FormatUint(counter, 10))
	return hex.EncodeToString(h.Sum(nil))
}

// Validator checks a packet digest against a window of counter values.
type Validator interface {
	Validate(payload []byte, digest string, from uint64) (uint64, error)
}

// SharedSecret validates digests over a single shared secret, probing
// counter values forward from the caller's position. The first matching
// counter is accepted and returned; the search starts at the caller's
// position itself, so a digest may validate again at an unchanged counter.
// A Bound of zero falls back to DefaultSearchBound.
type SharedSecret struct {
	Secret string
	Bound  int
}

func (s SharedSecret) Validate(payload []byte, digest string, from uint64) (uint64, error) {
	if s.Secret == "" {
		return 0, ErrNoSecret
	}
	bound := s.Bound
	if bound <= 0 {
		bound = DefaultSearchBound
	}
	want := []byte(digest)
	for i := 0; i < bound; i++ {
		candidate := from + uint64(i)
		have := []byte(Digest(payload, s.Secret, candidate))
		if subtle.ConstantTimeCompare(have, want) == 1 {
			return candidate, nil
		}
	}
	return 0, ErrDigestMismatch
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(payload []byte, digest string, from uint64) (uint64, error)

func (f FuncValidator) Validate(payload []byte, digest string, from uint64) (uint64, error) {
	return f(payload, digest, from)
}
