package config

// Config is the root of the jobpilot config file (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Profile   ProfileConfig   `json:"profile"`
	Autopilot AutopilotConfig `json:"autopilot"`
	Channel   ChannelConfig   `json:"channel"`

	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ProfileConfig describes the candidate.
type ProfileConfig struct {
	Skills          []string `json:"skills"`
	YearsExperience int      `json:"years_experience"`
}

// AutopilotConfig seeds the application preferences and the scan cadence.
// Preferences may later be changed at runtime; the persisted copy wins on
// restart, a config reload replaces it again.
type AutopilotConfig struct {
	Enabled        bool `json:"enabled"`
	AutoApply      bool `json:"auto_apply"`
	DailyLimit     int  `json:"daily_limit"`
	MatchThreshold int  `json:"match_threshold"`

	JobTypes           []string `json:"job_types,omitempty"`
	ExperienceLevels   []string `json:"experience_levels,omitempty"`
	Locations          []string `json:"locations,omitempty"`
	MinSalary          int      `json:"min_salary,omitempty"`
	RemoteOnly         bool     `json:"remote_only,omitempty"`
	ExcludedCompanies  []string `json:"excluded_companies,omitempty"`
	PreferredCompanies []string `json:"preferred_companies,omitempty"`
	IncludeKeywords    []string `json:"include_keywords,omitempty"`
	ExcludeKeywords    []string `json:"exclude_keywords,omitempty"`

	// ScanSpec is a cron spec (robfig/cron v3, "@every 15m" style accepted).
	ScanSpec   string `json:"scan_spec,omitempty"`
	BatchSize  int    `json:"batch_size,omitempty"`
	JobDelay   string `json:"job_delay,omitempty"`
	BatchDelay string `json:"batch_delay,omitempty"`
}

// ChannelConfig controls delivery to the page bridge.
type ChannelConfig struct {
	BridgeURL     string `json:"bridge_url"`
	Timeout       string `json:"timeout,omitempty"`
	MaxAttempts   int    `json:"max_attempts,omitempty"`
	BaseDelay     string `json:"base_delay,omitempty"`
	ProbeInterval string `json:"probe_interval,omitempty"`
	DeferTTL      string `json:"defer_ttl,omitempty"`
}

// NotifierConfig controls the async notification pipeline.
// If the whole section is omitted, the notifier defaults to enabled=true.
type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./jobpilot_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}
