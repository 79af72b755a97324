package client

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultPort is the server's default TCP port.
const DefaultPort = 1735

// BackoffConfig shapes the reconnect backoff schedule.
type BackoffConfig struct {
	// Initial is the first retry delay. Default: 100ms.
	Initial time.Duration

	// Max caps the delay. Default: 5s.
	Max time.Duration

	// Factor multiplies the delay after each failed attempt. Default: 2.
	Factor float64

	// Jitter is the random fraction applied around each delay
	// (0.25 means +/-25%). Default: 0.25.
	Jitter float64
}

// Config holds client configuration.
type Config struct {
	// Address is the server host (or a ws:// / wss:// URL to tunnel the
	// protocol over a WebSocket binary stream).
	Address string

	// Port is the server TCP port. Default: 1735. Ignored for
	// WebSocket addresses.
	Port int

	// Ident is the client identity sent in the handshake. Default: "".
	Ident string

	// KeepAliveInterval is the outbound idle interval after which a
	// KEEP_ALIVE probe is sent. Default: 1s.
	KeepAliveInterval time.Duration

	// RPCTimeout bounds each RPC call. Default: 5s.
	RPCTimeout time.Duration

	// Reconnect enables automatic reconnection after an unexpected
	// drop. Default: true.
	Reconnect bool

	// Backoff shapes the reconnect schedule.
	Backoff BackoffConfig

	// OutboundQueue is the bounded outbound message queue size.
	// Default: 64.
	OutboundQueue int

	// NonBlocking makes submissions fail with ErrBackpressure when the
	// outbound queue is full instead of blocking the caller.
	NonBlocking bool

	// Dial overrides the transport dialer. Default: TCP, or WebSocket
	// for ws:// / wss:// addresses.
	Dial Dialer

	// Logger receives structured logs. Default: slog.Default().
	Logger *slog.Logger

	// Registry receives the client's Prometheus metrics. Default: a
	// private registry (metrics collected but not exposed).
	Registry prometheus.Registerer
}

// DefaultConfig returns a Config with defaults for every field except
// Address.
func DefaultConfig() Config {
	return Config{
		Port:              DefaultPort,
		KeepAliveInterval: time.Second,
		RPCTimeout:        5 * time.Second,
		Reconnect:         true,
		Backoff: BackoffConfig{
			Initial: 100 * time.Millisecond,
			Max:     5 * time.Second,
			Factor:  2,
			Jitter:  0.25,
		},
		OutboundQueue: 64,
	}
}

// withDefaults fills zero-valued fields.
func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = time.Second
	}
	if c.RPCTimeout == 0 {
		c.RPCTimeout = 5 * time.Second
	}
	if c.Backoff.Initial == 0 {
		c.Backoff.Initial = 100 * time.Millisecond
	}
	if c.Backoff.Max == 0 {
		c.Backoff.Max = 5 * time.Second
	}
	if c.Backoff.Factor == 0 {
		c.Backoff.Factor = 2
	}
	if c.Backoff.Jitter == 0 {
		c.Backoff.Jitter = 0.25
	}
	if c.OutboundQueue == 0 {
		c.OutboundQueue = 64
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
