//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jobpilot/internal/jobs"
	logx "jobpilot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadPreferences(ctx context.Context) (jobs.Preferences, bool, error) {
	var p jobs.Preferences
	if s == nil || s.db == nil {
		return p, false, ErrDisabled
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM prefs WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, err
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, false, err
	}
	return p, true, nil
}

func (s *sqliteStore) SavePreferences(ctx context.Context, p jobs.Preferences) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prefs(id, data) VALUES(1, ?)
		 ON CONFLICT(id) DO UPDATE SET data=excluded.data`,
		string(b),
	)
	return err
}

func (s *sqliteStore) LoadLedger(ctx context.Context) (Ledger, bool, error) {
	var l Ledger
	if s == nil || s.db == nil {
		return l, false, ErrDisabled
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT applied_today, last_reset FROM ledger WHERE id = 1`,
	).Scan(&l.AppliedToday, &l.LastResetDate)
	if errors.Is(err, sql.ErrNoRows) {
		return l, false, nil
	}
	if err != nil {
		return l, false, err
	}
	return l, true, nil
}

func (s *sqliteStore) SaveLedger(ctx context.Context, l Ledger) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger(id, applied_today, last_reset) VALUES(1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET applied_today=excluded.applied_today, last_reset=excluded.last_reset`,
		l.AppliedToday, l.LastResetDate,
	)
	return err
}

func (s *sqliteStore) AddApplied(ctx context.Context, key string, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if key == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applied(key, at) VALUES(?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, at.UnixMilli(),
	)
	return err
}

func (s *sqliteStore) AppliedKeys(ctx context.Context) (map[string]struct{}, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM applied`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out[k] = struct{}{}
	}
	return out, rows.Err()
}
