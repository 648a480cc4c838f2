package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"jobpilot/internal/jobs"
	"jobpilot/internal/storage"
	logx "jobpilot/pkg/logx"
)

type memStore struct {
	mu     sync.Mutex
	ledger storage.Ledger
	has    bool
	saves  int
}

func (m *memStore) LoadPreferences(context.Context) (jobs.Preferences, bool, error) {
	return jobs.Preferences{}, false, nil
}
func (m *memStore) SavePreferences(context.Context, jobs.Preferences) error { return nil }
func (m *memStore) LoadLedger(context.Context) (storage.Ledger, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger, m.has, nil
}
func (m *memStore) SaveLedger(_ context.Context, l storage.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger, m.has = l, true
	m.saves++
	return nil
}
func (m *memStore) AddApplied(context.Context, string, time.Time) error { return nil }
func (m *memStore) AppliedKeys(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
func (m *memStore) Close() error { return nil }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordUpToLimit(t *testing.T) {
	t.Parallel()

	tr := New(&memStore{}, logx.Nop(), fixedClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))
	tr.Configure(true, 2)
	tr.Roll(context.Background())

	if !tr.CanApply() {
		t.Fatal("expected CanApply true at count 0")
	}
	if exhausted := tr.Record(context.Background()); exhausted {
		t.Fatal("limit 2 should not be exhausted after one application")
	}
	if exhausted := tr.Record(context.Background()); !exhausted {
		t.Fatal("limit 2 should be exhausted after two applications")
	}
	if tr.CanApply() {
		t.Fatal("expected CanApply false at the limit")
	}
	if got := tr.Count(); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
	if tr.State() != StateExhausted {
		t.Fatalf("state = %q, want exhausted", tr.State())
	}
}

func TestRecordNeverExceedsLimit(t *testing.T) {
	t.Parallel()

	tr := New(&memStore{}, logx.Nop(), fixedClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))
	tr.Configure(true, 1)
	tr.Roll(context.Background())

	tr.Record(context.Background())
	tr.Record(context.Background())
	tr.Record(context.Background())
	if got := tr.Count(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
}

func TestDisabledBlocksApplications(t *testing.T) {
	t.Parallel()

	tr := New(&memStore{}, logx.Nop(), fixedClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))
	tr.Configure(false, 5)
	tr.Roll(context.Background())

	if tr.CanApply() {
		t.Fatal("disabled tracker must refuse applications")
	}
	tr.Record(context.Background())
	if got := tr.Count(); got != 0 {
		t.Fatalf("count = %d, want 0 while disabled", got)
	}
}

func TestCalendarDayRollover(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 23, 50, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	st := &memStore{}
	tr := New(st, logx.Nop(), clock)
	tr.Configure(true, 3)
	tr.Roll(context.Background())
	tr.Record(context.Background())
	tr.Record(context.Background())

	// Same day: Roll is idempotent.
	tr.Roll(context.Background())
	if got := tr.Count(); got != 2 {
		t.Fatalf("count after same-day roll = %d, want 2", got)
	}

	// Next calendar day resets the count once.
	now = now.Add(20 * time.Minute)
	tr.Roll(context.Background())
	if got := tr.Count(); got != 0 {
		t.Fatalf("count after midnight roll = %d, want 0", got)
	}
	if !tr.CanApply() {
		t.Fatal("expected CanApply true after rollover")
	}
}

func TestRestoreFromLedger(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	st := &memStore{
		ledger: storage.Ledger{AppliedToday: 4, LastResetDate: now.Format("Mon Jan 02 2006")},
		has:    true,
	}
	tr := New(st, logx.Nop(), fixedClock(now))
	if err := tr.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	tr.Configure(true, 5)
	tr.Roll(context.Background())

	if got := tr.Count(); got != 4 {
		t.Fatalf("restored count = %d, want 4", got)
	}
	if !tr.CanApply() {
		t.Fatal("expected one application remaining")
	}
	if exhausted := tr.Record(context.Background()); !exhausted {
		t.Fatal("fifth application should exhaust limit 5")
	}
}

func TestRecordPersistsImmediately(t *testing.T) {
	t.Parallel()

	st := &memStore{}
	tr := New(st, logx.Nop(), fixedClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))
	tr.Configure(true, 3)
	tr.Roll(context.Background())
	tr.Record(context.Background())

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ledger.AppliedToday != 1 {
		t.Fatalf("persisted applied_today = %d, want 1", st.ledger.AppliedToday)
	}
	if st.saves < 2 { // roll + record
		t.Fatalf("saves = %d, want >= 2", st.saves)
	}
}
