package channel

import (
	"context"
	"encoding/json"
	"time"
)

// Transport delivers a single request to the remote endpoint. Implementations
// classify failures with the package sentinel errors (wrap with %w).
type Transport interface {
	Call(ctx context.Context, action string, payload any) (json.RawMessage, error)
	Ping(ctx context.Context) error
}

// Envelope is one message to the remote endpoint.
type Envelope struct {
	Action  string
	Payload any
}

// SendOptions tune a single Send. Zero values take the layer defaults.
type SendOptions struct {
	Timeout     time.Duration
	MaxAttempts int
}

// Result carries the outcome of a deferred delivery.
type Result struct {
	Raw json.RawMessage
	Err error
}

// Config for the layer. Zero values take the defaults below.
type Config struct {
	Timeout       time.Duration // per-attempt deadline
	MaxAttempts   int           // attempts per Send, including the first
	BaseDelay     time.Duration // delay before attempt k is (k-1)*BaseDelay
	ProbeInterval time.Duration
	DeferTTL      time.Duration // deferred messages older than this are dropped
}

const (
	defaultTimeout       = 10 * time.Second
	defaultMaxAttempts   = 3
	defaultBaseDelay     = time.Second
	defaultProbeInterval = 5 * time.Second
	defaultDeferTTL      = 5 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = defaultProbeInterval
	}
	if c.DeferTTL <= 0 {
		c.DeferTTL = defaultDeferTTL
	}
	return c
}
