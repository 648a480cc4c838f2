package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const sampleJSON = `{
  "logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}},
  "profile": {"skills": ["golang", "docker"], "years_experience": 4},
  "autopilot": {
    "enabled": true,
    "auto_apply": true,
    "daily_limit": 10,
    "match_threshold": 60,
    "job_types": ["full-time"],
    "scan_spec": "@every 10m",
    "job_delay": "5s",
    "batch_delay": "10s"
  },
  "channel": {"bridge_url": "http://127.0.0.1:8931", "timeout": "10s", "max_attempts": 3, "base_delay": "1s"},
  "storage": {"driver": "file", "path": "./store"}
}`

const sampleYAML = `
logging:
  level: info
  console: true
  file:
    enabled: false
    path: ""
profile:
  skills: [golang]
  years_experience: 2
autopilot:
  enabled: false
  auto_apply: false
  daily_limit: 5
  match_threshold: 70
channel:
  bridge_url: http://127.0.0.1:8931
  probe_interval: 5s
  defer_ttl: 5m
`

func TestParseJSON(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", sampleJSON))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Autopilot.DailyLimit != 10 {
		t.Fatalf("daily_limit = %d, want 10", cfg.Autopilot.DailyLimit)
	}
	ap, err := cfg.AutopilotSettings()
	if err != nil {
		t.Fatalf("AutopilotSettings: %v", err)
	}
	if ap.JobDelay != 5*time.Second || ap.BatchDelay != 10*time.Second {
		t.Fatalf("delays = %v/%v", ap.JobDelay, ap.BatchDelay)
	}
	prof := cfg.CandidateProfile()
	if len(prof.Skills) != 2 || prof.YearsExperience != 4 {
		t.Fatalf("profile = %+v", prof)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Autopilot.MatchThreshold != 70 {
		t.Fatalf("match_threshold = %d, want 70", cfg.Autopilot.MatchThreshold)
	}
	ch, err := cfg.ChannelSettings()
	if err != nil {
		t.Fatalf("ChannelSettings: %v", err)
	}
	if ch.ProbeInterval != 5*time.Second || ch.DeferTTL != 5*time.Minute {
		t.Fatalf("channel settings = %+v", ch)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", `{"autopilto": {}}`))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"missing bridge url", func(c *Config) { c.Channel.BridgeURL = "" }, true},
		{"negative daily limit", func(c *Config) { c.Autopilot.DailyLimit = -1 }, true},
		{"threshold above 100", func(c *Config) { c.Autopilot.MatchThreshold = 101 }, true},
		{"bad duration", func(c *Config) { c.Channel.Timeout = "10 parsecs" }, true},
		{"telegram token without chat", func(c *Config) {
			c.Telegram = &TelegramConfig{Token: "t"}
		}, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := &Config{
				Autopilot: AutopilotConfig{DailyLimit: 5, MatchThreshold: 60},
				Channel:   ChannelConfig{BridgeURL: "http://127.0.0.1:8931"},
			}
			tc.mutate(c)
			err := c.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	if d, err := parseDuration("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: %v %v", d, err)
	}
	if d, err := parseDuration("x", " 1m30s "); err != nil || d != 90*time.Second {
		t.Fatalf("1m30s: %v %v", d, err)
	}
	if _, err := parseDuration("x", "-5s"); err == nil {
		t.Fatal("negative duration must fail")
	}
	if _, err := parseDuration("x", "soon"); err == nil {
		t.Fatal("garbage duration must fail")
	}
}
