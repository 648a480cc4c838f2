// Package channel implements resilient request delivery to the page endpoint:
// bounded retries with linear backoff, per-attempt timeouts, an invalidation
// latch, a health probe that is the sole recovery path, and a deferred queue
// drained on recovery.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	logx "jobpilot/pkg/logx"
)

// InvalidatedFunc is called once per outage, on the first transition to
// INVALID regardless of whether a send or the probe observed the failure.
// Recovery re-arms it.
type InvalidatedFunc func()

// Layer wraps a Transport with the delivery policy.
type Layer struct {
	tr    Transport
	cfg   Config
	log   logx.Logger
	sleep func(ctx context.Context, d time.Duration) error

	valid  atomic.Bool
	warned atomic.Bool

	onInvalidated InvalidatedFunc

	mu       sync.Mutex
	deferred []deferredItem
}

// Option configures a Layer.
type Option func(*Layer)

func WithLogger(log logx.Logger) Option { return func(l *Layer) { l.log = log } }

// WithInvalidatedFunc installs the one-shot outage notification hook.
func WithInvalidatedFunc(fn InvalidatedFunc) Option {
	return func(l *Layer) { l.onInvalidated = fn }
}

// withSleep overrides the retry sleeper. Tests only.
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Layer) { l.sleep = fn }
}

func New(tr Transport, cfg Config, opts ...Option) *Layer {
	l := &Layer{
		tr:    tr,
		cfg:   cfg.withDefaults(),
		log:   logx.Nop(),
		sleep: sleepCtx,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.valid.Store(true)
	return l
}

// Valid reports whether the channel is currently usable.
func (l *Layer) Valid() bool { return l.valid.Load() }

// Send delivers env with the retry policy. An INVALID channel fails
// immediately without touching the transport.
func (l *Layer) Send(ctx context.Context, env Envelope, opt SendOptions) (json.RawMessage, error) {
	if !l.valid.Load() {
		return nil, fmt.Errorf("send %s: %w", env.Action, ErrInvalid)
	}

	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = l.cfg.Timeout
	}
	attempts := opt.MaxAttempts
	if attempts <= 0 {
		attempts = l.cfg.MaxAttempts
	}

	var lastErr error
	for k := 1; k <= attempts; k++ {
		if delay := time.Duration(k-1) * l.cfg.BaseDelay; delay > 0 {
			if err := l.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		raw, err := l.attempt(ctx, env, timeout)
		if err == nil {
			return raw, nil
		}
		if errors.Is(err, ErrContextInvalidated) {
			l.invalidate()
			return nil, fmt.Errorf("send %s: %w", env.Action, err)
		}
		if !Retryable(err) {
			return nil, fmt.Errorf("send %s: %w", env.Action, err)
		}
		lastErr = err
		l.log.Debug("send attempt failed",
			logx.String("action", env.Action),
			logx.Int("attempt", k),
			logx.Err(err))
	}
	return nil, fmt.Errorf("send %s: attempts exhausted (%d): %w", env.Action, attempts, lastErr)
}

func (l *Layer) attempt(ctx context.Context, env Envelope, timeout time.Duration) (json.RawMessage, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := l.tr.Call(actx, env.Action, env.Payload)
	if err == nil {
		return raw, nil
	}
	// A deadline on the attempt context is this attempt timing out, not the
	// caller going away.
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return nil, err
}

// invalidate latches the channel INVALID and fires the outage hook on the
// transition. Only the probe loop clears the latch.
func (l *Layer) invalidate() {
	if l.valid.CompareAndSwap(true, false) {
		l.log.Warn("channel invalidated")
		l.noteInvalid()
	}
}

// noteInvalid fires the outage hook at most once per outage.
func (l *Layer) noteInvalid() {
	if l.warned.CompareAndSwap(false, true) && l.onInvalidated != nil {
		l.onInvalidated()
	}
}

// recover marks the channel VALID and re-arms the outage hook.
func (l *Layer) recover() {
	if l.valid.CompareAndSwap(false, true) {
		l.warned.Store(false)
		l.log.Info("channel recovered")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
