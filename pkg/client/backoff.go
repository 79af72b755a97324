package client

import (
	"math/rand"
	"time"
)

// backoff produces jittered exponential reconnect delays.
type backoff struct {
	cfg  BackoffConfig
	next time.Duration
}

func newBackoff(cfg BackoffConfig) *backoff {
	return &backoff{cfg: cfg, next: cfg.Initial}
}

// Next returns the delay before the next attempt and advances the
// schedule.
func (b *backoff) Next() time.Duration {
	d := b.next

	b.next = time.Duration(float64(b.next) * b.cfg.Factor)
	if b.next > b.cfg.Max {
		b.next = b.cfg.Max
	}

	if b.cfg.Jitter > 0 {
		// Spread delays across +/-Jitter so reconnecting clients do
		// not stampede the server in lockstep.
		f := 1 + b.cfg.Jitter*(2*rand.Float64()-1)
		d = time.Duration(float64(d) * f)
	}
	return d
}

// Reset restarts the schedule after a successful connection.
func (b *backoff) Reset() {
	b.next = b.cfg.Initial
}
