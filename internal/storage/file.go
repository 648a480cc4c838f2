package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"jobpilot/internal/jobs"
	logx "jobpilot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.prefs.json            (preferences snapshot, whole-object replace)
//   - <prefix>.ledger.json           (daily counter snapshot)
//   - <prefix>.applied.snapshot.json (periodic snapshot of applied keys)
//   - <prefix>.applied.journal.jsonl (append-only journal)
//
// The journal is periodically compacted into the snapshot. Applied keys are
// never pruned.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	prefsPath  string
	ledgerPath string

	appliedSnapshotPath string
	appliedJournalFile  *os.File
	applied             map[string]int64 // key -> unix milli applied-at

	appliedWrites int
}

type appliedRecord struct {
	Key string `json:"key"`
	At  int64  `json:"at"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	prefsPath := prefix + ".prefs.json"
	ledgerPath := prefix + ".ledger.json"
	snapPath := prefix + ".applied.snapshot.json"
	journalPath := prefix + ".applied.journal.jsonl"

	// Load applied keys from snapshot + journal.
	applied := map[string]int64{}
	_ = loadAppliedSnapshot(snapPath, applied)
	_ = replayAppliedJournal(journalPath, applied)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:                 log,
		prefsPath:           prefsPath,
		ledgerPath:          ledgerPath,
		appliedSnapshotPath: snapPath,
		appliedJournalFile:  jf,
		applied:             applied,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appliedJournalFile != nil {
		err := s.appliedJournalFile.Close()
		s.appliedJournalFile = nil
		return err
	}
	return nil
}

func (s *fileStore) LoadPreferences(ctx context.Context) (jobs.Preferences, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var p jobs.Preferences
	ok, err := readJSONFile(s.prefsPath, &p)
	return p, ok, err
}

func (s *fileStore) SavePreferences(ctx context.Context, p jobs.Preferences) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONFileAtomic(s.prefsPath, p)
}

func (s *fileStore) LoadLedger(ctx context.Context) (Ledger, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var l Ledger
	ok, err := readJSONFile(s.ledgerPath, &l)
	return l, ok, err
}

func (s *fileStore) SaveLedger(ctx context.Context, l Ledger) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONFileAtomic(s.ledgerPath, l)
}

func (s *fileStore) AddApplied(ctx context.Context, key string, at time.Time) error {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	ms := at.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appliedJournalFile == nil {
		return errors.New("applied journal closed")
	}
	if s.applied == nil {
		s.applied = map[string]int64{}
	}
	s.applied[key] = ms

	enc := json.NewEncoder(s.appliedJournalFile)
	if err := enc.Encode(appliedRecord{Key: key, At: ms}); err != nil {
		return err
	}
	s.appliedWrites++
	if s.appliedWrites%1000 == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("applied compact failed", logx.Any("err", err))
		}
	}
	return nil
}

func (s *fileStore) AppliedKeys(ctx context.Context) (map[string]struct{}, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.applied))
	for k := range s.applied {
		out[k] = struct{}{}
	}
	return out, nil
}

func (s *fileStore) compactLocked() error {
	if s.applied == nil {
		return nil
	}

	tmp := s.appliedSnapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.applied); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.appliedSnapshotPath); err != nil {
		return err
	}
	// Truncate journal.
	if err := s.appliedJournalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.appliedJournalFile.Seek(0, 2)
	return err
}

func loadAppliedSnapshot(path string, out map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]int64
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayAppliedJournal(path string, out map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		var r appliedRecord
		if err := json.Unmarshal(s.Bytes(), &r); err != nil {
			continue
		}
		if r.Key == "" {
			continue
		}
		out[r.Key] = r.At
	}
	return s.Err()
}

func readJSONFile(path string, out any) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSONFileAtomic(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
