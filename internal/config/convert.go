package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"jobpilot/internal/autopilot"
	"jobpilot/internal/channel"
	"jobpilot/internal/jobs"
	"jobpilot/internal/notify"
	"jobpilot/internal/storage"
	logx "jobpilot/pkg/logx"
)

// Validate rejects configs that cannot be wired. Duration strings are parsed
// here so a bad reload never reaches the running components.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Channel.BridgeURL) == "" {
		return errors.New("channel.bridge_url is required")
	}
	if c.Autopilot.DailyLimit < 0 {
		return errors.New("autopilot.daily_limit must be >= 0")
	}
	if c.Autopilot.MatchThreshold < 0 || c.Autopilot.MatchThreshold > 100 {
		return errors.New("autopilot.match_threshold must be in 0..100")
	}
	if _, err := c.ChannelSettings(); err != nil {
		return err
	}
	if _, err := c.AutopilotSettings(); err != nil {
		return err
	}
	if _, err := c.NotifierSettings(); err != nil {
		return err
	}
	if _, err := c.StorageSettings(); err != nil {
		return err
	}
	if c.Telegram != nil && strings.TrimSpace(c.Telegram.Token) != "" && c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required when a token is set")
	}
	return nil
}

func (c *Config) LogSettings() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

func (c *Config) CandidateProfile() jobs.Profile {
	return jobs.Profile{
		Skills:          append([]string(nil), c.Profile.Skills...),
		YearsExperience: c.Profile.YearsExperience,
	}
}

func (c *Config) JobPreferences() jobs.Preferences {
	a := c.Autopilot
	return jobs.Preferences{
		Enabled:            a.Enabled,
		AutoApply:          a.AutoApply,
		DailyLimit:         a.DailyLimit,
		MatchThreshold:     a.MatchThreshold,
		JobTypes:           append([]string(nil), a.JobTypes...),
		ExperienceLevels:   append([]string(nil), a.ExperienceLevels...),
		Locations:          append([]string(nil), a.Locations...),
		MinSalary:          a.MinSalary,
		RemoteOnly:         a.RemoteOnly,
		ExcludedCompanies:  append([]string(nil), a.ExcludedCompanies...),
		PreferredCompanies: append([]string(nil), a.PreferredCompanies...),
		IncludeKeywords:    append([]string(nil), a.IncludeKeywords...),
		ExcludeKeywords:    append([]string(nil), a.ExcludeKeywords...),
	}
}

func (c *Config) AutopilotSettings() (autopilot.Config, error) {
	jobDelay, err := parseDuration("autopilot.job_delay", c.Autopilot.JobDelay)
	if err != nil {
		return autopilot.Config{}, err
	}
	batchDelay, err := parseDuration("autopilot.batch_delay", c.Autopilot.BatchDelay)
	if err != nil {
		return autopilot.Config{}, err
	}
	return autopilot.Config{
		ScanSpec:   c.Autopilot.ScanSpec,
		BatchSize:  c.Autopilot.BatchSize,
		JobDelay:   jobDelay,
		BatchDelay: batchDelay,
	}, nil
}

func (c *Config) ChannelSettings() (channel.Config, error) {
	timeout, err := parseDuration("channel.timeout", c.Channel.Timeout)
	if err != nil {
		return channel.Config{}, err
	}
	baseDelay, err := parseDuration("channel.base_delay", c.Channel.BaseDelay)
	if err != nil {
		return channel.Config{}, err
	}
	probe, err := parseDuration("channel.probe_interval", c.Channel.ProbeInterval)
	if err != nil {
		return channel.Config{}, err
	}
	ttl, err := parseDuration("channel.defer_ttl", c.Channel.DeferTTL)
	if err != nil {
		return channel.Config{}, err
	}
	if c.Channel.MaxAttempts < 0 {
		return channel.Config{}, errors.New("channel.max_attempts must be >= 0")
	}
	return channel.Config{
		Timeout:       timeout,
		MaxAttempts:   c.Channel.MaxAttempts,
		BaseDelay:     baseDelay,
		ProbeInterval: probe,
		DeferTTL:      ttl,
	}, nil
}

// NotifierSettings defaults to an enabled pipeline when the section is omitted.
func (c *Config) NotifierSettings() (notify.Config, error) {
	if c.Notifier == nil {
		return notify.Config{Enabled: true}, nil
	}
	n := c.Notifier
	retryBase, err := parseDuration("notifier.retry_base", n.RetryBase)
	if err != nil {
		return notify.Config{}, err
	}
	retryMaxDelay, err := parseDuration("notifier.retry_max_delay", n.RetryMaxDelay)
	if err != nil {
		return notify.Config{}, err
	}
	dedupWindow, err := parseDuration("notifier.dedup_window", n.DedupWindow)
	if err != nil {
		return notify.Config{}, err
	}
	return notify.Config{
		Enabled:         n.Enabled,
		Workers:         n.Workers,
		QueueSize:       n.QueueSize,
		RatePerSec:      n.RatePerSec,
		RetryMax:        n.RetryMax,
		RetryBase:       retryBase,
		RetryMaxDelay:   retryMaxDelay,
		DedupWindow:     dedupWindow,
		DedupMaxEntries: n.DedupMaxEntries,
	}, nil
}

func (c *Config) StorageSettings() (storage.Config, error) {
	if c.Storage == nil {
		return storage.Config{}, nil
	}
	busy, err := parseDuration("storage.busy_timeout", c.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      c.Storage.Driver,
		Path:        c.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

// TelegramPollTimeout parses the optional poll timeout with a sane default.
func (c *Config) TelegramPollTimeout() (time.Duration, error) {
	if c.Telegram == nil {
		return 0, nil
	}
	d, err := parseDuration("telegram.poll_timeout", c.Telegram.PollTimeout)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		d = 10 * time.Second
	}
	return d, nil
}

// Describe returns a short single-line summary for startup logging.
func (c *Config) Describe() string {
	driver := "none"
	if c.Storage != nil && c.Storage.Driver != "" {
		driver = c.Storage.Driver
	}
	return fmt.Sprintf("autopilot=%v auto_apply=%v daily_limit=%d threshold=%d storage=%s",
		c.Autopilot.Enabled, c.Autopilot.AutoApply, c.Autopilot.DailyLimit,
		c.Autopilot.MatchThreshold, driver)
}
