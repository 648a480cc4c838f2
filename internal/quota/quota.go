// Package quota tracks the daily application count with a calendar-day reset.
package quota

import (
	"context"
	"sync"
	"time"

	"jobpilot/internal/storage"
	logx "jobpilot/pkg/logx"
)

// dateLayout matches the original ledger's date-string shape
// (calendar-day granularity, local time), e.g. "Mon Jan 01 2024".
const dateLayout = "Mon Jan 02 2006"

// State of the tracker for the current day.
type State string

const (
	StateNormal    State = "normal"
	StateExhausted State = "exhausted"
)

// Tracker enforces the daily application limit.
//
// In-memory state is authoritative; persistence is best-effort (a write
// failure is logged and does not roll back the count).
type Tracker struct {
	mu    sync.Mutex
	store storage.Store
	log   logx.Logger
	now   func() time.Time

	enabled bool
	limit   int

	count     int
	lastReset string
}

func New(store storage.Store, log logx.Logger, now func() time.Time) *Tracker {
	if log.IsZero() {
		log = logx.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, log: log, now: now}
}

// Restore loads the persisted ledger. Call once at startup.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	l, ok, err := t.store.LoadLedger(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	t.mu.Lock()
	t.count = l.AppliedToday
	t.lastReset = l.LastResetDate
	t.mu.Unlock()
	return nil
}

// Configure updates the limit and enabled flag from current preferences.
// Called at the start of every cycle.
func (t *Tracker) Configure(enabled bool, dailyLimit int) {
	t.mu.Lock()
	t.enabled = enabled
	t.limit = dailyLimit
	t.mu.Unlock()
}

// Roll applies the calendar-day rollover: when the stored date string differs
// from today's, the count resets to zero exactly once. Idempotent; safe to
// call every cycle.
func (t *Tracker) Roll(ctx context.Context) {
	today := t.now().Format(dateLayout)

	t.mu.Lock()
	if t.lastReset == today {
		t.mu.Unlock()
		return
	}
	t.count = 0
	t.lastReset = today
	ledger := storage.Ledger{AppliedToday: 0, LastResetDate: today}
	t.mu.Unlock()

	t.log.Info("daily quota reset", logx.String("date", today))
	t.persist(ctx, ledger)
}

// CanApply reports whether another application may be submitted today.
func (t *Tracker) CanApply() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && t.count < t.limit
}

// Record counts one successful application and persists immediately.
// It returns true when this application just exhausted the daily limit.
func (t *Tracker) Record(ctx context.Context) bool {
	t.mu.Lock()
	if !t.enabled || t.count >= t.limit {
		// Callers are expected to check CanApply first; never exceed the limit.
		t.mu.Unlock()
		return false
	}
	t.count++
	exhausted := t.count >= t.limit
	ledger := storage.Ledger{AppliedToday: t.count, LastResetDate: t.lastReset}
	t.mu.Unlock()

	t.persist(ctx, ledger)
	return exhausted
}

// Count returns today's application count.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// State reports NORMAL or EXHAUSTED for the current day.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count >= t.limit {
		return StateExhausted
	}
	return StateNormal
}

func (t *Tracker) persist(ctx context.Context, l storage.Ledger) {
	if t.store == nil {
		return
	}
	if err := t.store.SaveLedger(ctx, l); err != nil {
		t.log.Warn("ledger persist failed", logx.Err(err), logx.Int("applied_today", l.AppliedToday))
	}
}
