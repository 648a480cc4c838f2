// Package transport defines the outbound notification surface. The autopilot
// only pushes status updates to the user; there is no inbound command flow.
package transport

import "context"

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

// Notification is one user-facing status message.
type Notification struct {
	Priority int // 0 low .. 10 high
	Target   ChatTarget
	Text     string
	// DedupeKey suppresses repeats within the notifier's dedup window.
	// Empty means no suppression.
	DedupeKey string
}

// Adapter delivers notifications to one messaging platform.
type Adapter interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	Stop(ctx context.Context) error
}
