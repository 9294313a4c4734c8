package session

import (
	"math"
	"math/rand"
	"time"
)

// Delay returns the reconnect delay for attempt N (1-based).
func (b BackoffConfig) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 || b.InitialDelay <= 0 {
		return b.InitialDelay
	}
	mult := b.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	d := float64(b.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if b.MaxDelay > 0 && d > float64(b.MaxDelay) {
		d = float64(b.MaxDelay)
	}
	if b.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		d *= f
	}
	return time.Duration(d)
}
