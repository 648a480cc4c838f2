package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"jobpilot/internal/jobs"
	logx "jobpilot/pkg/logx"
)

func openTestStore(t *testing.T, dir string) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "store")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

func TestFilePreferencesRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := openTestStore(t, dir)
	defer st.Close()

	if _, ok, err := st.LoadPreferences(context.Background()); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	want := jobs.Preferences{
		Enabled:        true,
		AutoApply:      true,
		DailyLimit:     7,
		MatchThreshold: 65,
		JobTypes:       []string{"full-time"},
	}
	if err := st.SavePreferences(context.Background(), want); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	got, ok, err := st.LoadPreferences(context.Background())
	if err != nil || !ok {
		t.Fatalf("LoadPreferences: ok=%v err=%v", ok, err)
	}
	if got.DailyLimit != 7 || got.MatchThreshold != 65 || !got.AutoApply {
		t.Fatalf("got %+v", got)
	}
}

func TestFileLedgerRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := openTestStore(t, dir)
	defer st.Close()

	want := Ledger{AppliedToday: 3, LastResetDate: "Fri Mar 01 2024"}
	if err := st.SaveLedger(context.Background(), want); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}
	got, ok, err := st.LoadLedger(context.Background())
	if err != nil || !ok {
		t.Fatalf("LoadLedger: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAppliedKeysSurviveReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := openTestStore(t, dir)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, k := range []string{"acme|engineer|berlin", "globex|developer|remote"} {
		if err := st.AddApplied(context.Background(), k, at); err != nil {
			t.Fatalf("AddApplied(%q): %v", k, err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The journal replays on reopen; keys are never pruned.
	st = openTestStore(t, dir)
	defer st.Close()
	keys, err := st.AppliedKeys(context.Background())
	if err != nil {
		t.Fatalf("AppliedKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("keys = %v, want 2 entries", keys)
	}
	if _, ok := keys["acme|engineer|berlin"]; !ok {
		t.Fatalf("missing key in %v", keys)
	}
}

func TestOpenWithoutDriverDisabled(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{}, logx.Nop())
	if err == nil && st != nil {
		t.Fatal("expected no store for empty driver")
	}
}
