package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	kit "jobpilot/internal/transport"
	logx "jobpilot/pkg/logx"
)

type captureAdapter struct {
	mu    sync.Mutex
	sent  []string
	fails int // fail the first N sends
}

func (c *captureAdapter) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fails > 0 {
		c.fails--
		return kit.MessageRef{}, context.DeadlineExceeded
	}
	c.sent = append(c.sent, text)
	return kit.MessageRef{MessageID: len(c.sent)}, nil
}

func (c *captureAdapter) Stop(context.Context) error { return nil }

func (c *captureAdapter) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestNotifyDelivers(t *testing.T) {
	t.Parallel()

	ad := &captureAdapter{}
	s := New(Config{Enabled: true, Workers: 1, RatePerSec: 100}, ad, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), kit.Notification{Text: "autopilot started"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitFor(t, func() bool { return len(ad.texts()) == 1 })
	if got := ad.texts()[0]; got != "autopilot started" {
		t.Fatalf("sent %q", got)
	}

	hist := s.Snapshot()
	if len(hist) != 1 || hist[0].Text != "autopilot started" {
		t.Fatalf("history = %+v, want the delivered message", hist)
	}
}

func TestNotifyDisabled(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: false}, &captureAdapter{}, logx.Nop(), nil)
	if err := s.Notify(context.Background(), kit.Notification{Text: "x"}); err != ErrDisabled {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestNotifyDedupWindow(t *testing.T) {
	t.Parallel()

	ad := &captureAdapter{}
	s := New(Config{Enabled: true, Workers: 1, RatePerSec: 100, DedupWindow: time.Minute}, ad, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	n := kit.Notification{Text: "channel unreachable", DedupeKey: "channel-invalid"}
	for i := 0; i < 3; i++ {
		if err := s.Notify(context.Background(), n); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}
	waitFor(t, func() bool { return len(ad.texts()) == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := len(ad.texts()); got != 1 {
		t.Fatalf("sent %d, want 1 within dedup window", got)
	}

	// Without a dedup key every message goes through.
	for i := 0; i < 2; i++ {
		if err := s.Notify(context.Background(), kit.Notification{Text: "applied"}); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}
	waitFor(t, func() bool { return len(ad.texts()) == 3 })
}

func TestNotifyRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	ad := &captureAdapter{fails: 2}
	s := New(Config{
		Enabled: true, Workers: 1, RatePerSec: 100,
		RetryMax: 3, RetryBase: time.Millisecond, RetryMaxDelay: 5 * time.Millisecond,
	}, ad, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), kit.Notification{Text: "quota exhausted"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitFor(t, func() bool { return len(ad.texts()) == 1 })
}

func TestPriorityPrefix(t *testing.T) {
	t.Parallel()

	ad := &captureAdapter{}
	s := New(Config{Enabled: true, Workers: 1, RatePerSec: 100}, ad, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), kit.Notification{Text: "limit reached", Priority: 7}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitFor(t, func() bool { return len(ad.texts()) == 1 })
	if got := ad.texts()[0]; got != "⚠️ limit reached" {
		t.Fatalf("sent %q", got)
	}
}
