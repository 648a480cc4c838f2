package transport

import (
	"context"

	logx "jobpilot/pkg/logx"
)

// LogAdapter writes notifications to the log. Used when no messaging platform
// is configured.
type LogAdapter struct {
	log logx.Logger
}

func NewLogAdapter(log logx.Logger) *LogAdapter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogAdapter{log: log}
}

func (a *LogAdapter) SendText(_ context.Context, _ ChatTarget, text string, _ *SendOptions) (MessageRef, error) {
	a.log.Info("notification", logx.String("text", text))
	return MessageRef{}, nil
}

func (a *LogAdapter) Stop(context.Context) error { return nil }
