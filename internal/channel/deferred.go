package channel

import (
	"time"

	logx "jobpilot/pkg/logx"
)

type deferredItem struct {
	env      Envelope
	opt      SendOptions
	done     func(Result)
	enqueued time.Time
}

// Defer queues env for delivery once the channel recovers. Order is FIFO.
// Entries older than the configured TTL are dropped on every enqueue; their
// done callbacks are never invoked.
func (l *Layer) Defer(env Envelope, opt SendOptions, done func(Result)) {
	now := time.Now()

	l.mu.Lock()
	l.purgeLocked(now)
	l.deferred = append(l.deferred, deferredItem{env: env, opt: opt, done: done, enqueued: now})
	n := len(l.deferred)
	l.mu.Unlock()

	l.log.Debug("message deferred", logx.String("action", env.Action), logx.Int("queued", n))
}

// Deferred returns the number of queued messages.
func (l *Layer) Deferred() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.deferred)
}

func (l *Layer) purgeLocked(now time.Time) {
	cutoff := now.Add(-l.cfg.DeferTTL)
	keep := l.deferred[:0]
	dropped := 0
	for _, it := range l.deferred {
		if it.enqueued.Before(cutoff) {
			dropped++
			continue
		}
		keep = append(keep, it)
	}
	l.deferred = keep
	if dropped > 0 {
		l.log.Warn("stale deferred messages dropped", logx.Int("dropped", dropped))
	}
}

// takeDeferred removes and returns all queued messages in order.
func (l *Layer) takeDeferred() []deferredItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := l.deferred
	l.deferred = nil
	return items
}
