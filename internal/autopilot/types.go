package autopilot

import (
	"context"
	"time"

	"jobpilot/internal/jobs"
	"jobpilot/internal/page"
	kit "jobpilot/internal/transport"
)

// State of the autopilot loop.
type State string

const (
	// StateInactive: switched off by the user. Nothing runs.
	StateInactive State = "inactive"
	// StateScanning: between cycles, or extracting and scoring postings.
	StateScanning State = "scanning"
	// StateApplying: working through the qualified queue.
	StateApplying State = "applying"
	// StatePaused: daily quota exhausted. The next cycle after the calendar
	// day rolls over resumes automatically.
	StatePaused State = "paused"
)

// Config tunes the scan and apply cadence.
type Config struct {
	ScanSpec   string        // cron spec for periodic scans
	BatchSize  int           // applications per batch
	JobDelay   time.Duration // pause between applications
	BatchDelay time.Duration // pause between batches
}

const (
	defaultScanSpec   = "@every 15m"
	defaultBatchSize  = 5
	defaultJobDelay   = 5 * time.Second
	defaultBatchDelay = 10 * time.Second
)

func (c Config) withDefaults() Config {
	if c.ScanSpec == "" {
		c.ScanSpec = defaultScanSpec
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.JobDelay <= 0 {
		c.JobDelay = defaultJobDelay
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = defaultBatchDelay
	}
	return c
}

// Notifier pushes status updates to the user.
type Notifier interface {
	Notify(ctx context.Context, n kit.Notification) error
}

// Status is a point-in-time snapshot for operational visibility.
type Status struct {
	State        State
	Queued       int
	AppliedToday int
}

// PageDriver is the page operation surface the autopilot needs.
// *page.Client implements it.
type PageDriver interface {
	ExtractAllJobs(ctx context.Context) ([]jobs.Posting, error)
	ApplyToJob(ctx context.Context, p jobs.Posting) (page.ApplyResult, error)
	CurrentURL(ctx context.Context) (string, error)
}
