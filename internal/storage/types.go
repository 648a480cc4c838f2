package storage

import (
	"context"
	"errors"
	"time"

	"jobpilot/internal/jobs"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl journal + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Ledger holds today's application count and the calendar date string it was
// last reset against. Whole-object replace, never partial patch.
type Ledger struct {
	AppliedToday  int    `json:"appliedToday"`
	LastResetDate string `json:"lastResetDate"`
}

// Store is the minimal persistence API used by the autopilot and quota tracker.
type Store interface {
	LoadPreferences(ctx context.Context) (jobs.Preferences, bool, error)
	SavePreferences(ctx context.Context, p jobs.Preferences) error

	LoadLedger(ctx context.Context) (Ledger, bool, error)
	SaveLedger(ctx context.Context, l Ledger) error

	// AddApplied records a job key in the append-only applied set.
	// Keys are never pruned.
	AddApplied(ctx context.Context, key string, at time.Time) error
	AppliedKeys(ctx context.Context) (map[string]struct{}, error)

	Close() error
}
