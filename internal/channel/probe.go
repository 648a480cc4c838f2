package channel

import (
	"context"
	"time"

	logx "jobpilot/pkg/logx"
)

// RunProbe pings the transport on a fixed interval until ctx is done. A
// failed ping latches the channel INVALID; a successful ping while INVALID
// restores it and drains the deferred queue in order. This loop is the only
// path from INVALID back to VALID.
func (l *Layer) RunProbe(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.probeOnce(ctx)
		}
	}
}

func (l *Layer) probeOnce(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	err := l.tr.Ping(pctx)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.invalidate()
		return
	}

	wasInvalid := !l.valid.Load()
	l.recover()
	if wasInvalid {
		l.drainDeferred(ctx)
	}
}

func (l *Layer) drainDeferred(ctx context.Context) {
	items := l.takeDeferred()
	if len(items) == 0 {
		return
	}
	l.log.Info("draining deferred messages", logx.Int("count", len(items)))

	for _, it := range items {
		raw, err := l.Send(ctx, it.env, it.opt)
		if it.done != nil {
			it.done(Result{Raw: raw, Err: err})
		}
		if ctx.Err() != nil {
			return
		}
	}
}
