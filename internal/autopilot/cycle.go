package autopilot

import (
	"context"
	"errors"
	"fmt"

	"jobpilot/internal/channel"
	"jobpilot/internal/eventbus"
	"jobpilot/internal/jobs"
	"jobpilot/internal/page"
	kit "jobpilot/internal/transport"
	logx "jobpilot/pkg/logx"
)

// cycle runs one scan-score-apply pass. Runs only on the run loop goroutine.
func (s *Service) cycle(ctx context.Context) {
	s.mu.Lock()
	prefs := s.prefs
	profile := s.profile
	s.mu.Unlock()

	if !prefs.Enabled {
		s.setState(StateInactive)
		return
	}

	if s.quota != nil {
		s.quota.Configure(true, prefs.DailyLimit)
		s.quota.Roll(ctx)
		if !s.quota.CanApply() {
			s.setState(StatePaused)
			return
		}
	}

	s.setState(StateScanning)

	if !s.onSupportedBoard(ctx) {
		return
	}

	postings, err := s.page.ExtractAllJobs(ctx)
	if err != nil {
		// Extraction failures end the cycle; the schedule retries later.
		s.log.Warn("job extraction failed", logx.Err(err))
		return
	}

	applied := s.appliedSnapshot()
	scored := s.scorer.Qualify(postings, profile, prefs, applied, s.clock.Now())

	s.log.Info("scan completed",
		logx.Int("extracted", len(postings)),
		logx.Int("qualified", len(scored)))
	s.publish("scan.completed", eventbus.ScanCompleted{
		Extracted: len(postings),
		Qualified: len(scored),
		At:        s.clock.Now(),
	})

	if len(scored) == 0 {
		return
	}

	if !prefs.AutoApply {
		// Report-only mode: surface the matches, apply nothing.
		s.notify(ctx, kit.Notification{
			Text:     fmt.Sprintf("Found %d matching jobs (auto-apply is off)", len(scored)),
			Priority: 5,
		})
		return
	}

	s.mu.Lock()
	s.queue = scored
	s.state = StateApplying
	s.mu.Unlock()

	s.applyQueue(ctx)
}

func (s *Service) onSupportedBoard(ctx context.Context) bool {
	url, err := s.page.CurrentURL(ctx)
	if err != nil {
		s.log.Warn("page location unavailable", logx.Err(err))
		return false
	}
	if !page.SupportedSource(url) {
		s.log.Debug("page is not a supported job board", logx.String("url", url))
		return false
	}
	return true
}

// applyQueue drains the qualified queue with pacing: a fixed delay between
// applications and a longer one between batches. Between every pop it
// re-checks the kill switches, so a toggle-off or quota exhaustion takes
// effect at the next job boundary.
func (s *Service) applyQueue(ctx context.Context) {
	attempts := 0
	for {
		s.mu.Lock()
		if !s.prefs.Enabled || s.state == StateInactive {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.state = StateScanning
			s.mu.Unlock()
			return
		}
		if s.quota != nil && !s.quota.CanApply() {
			s.queue = nil
			s.state = StatePaused
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if attempts > 0 {
			delay := s.cfg.JobDelay
			if attempts%s.cfg.BatchSize == 0 {
				delay = s.cfg.BatchDelay
			}
			if err := s.clock.Sleep(ctx, delay); err != nil {
				return
			}
		}
		attempts++

		if done := s.applyOne(ctx, next); done {
			return
		}
	}
}

// applyOne submits one application. It returns true when the queue run must
// stop (channel down or quota exhausted).
func (s *Service) applyOne(ctx context.Context, sc jobs.Scored) bool {
	res, err := s.page.ApplyToJob(ctx, sc.Posting)
	if err != nil {
		if errors.Is(err, channel.ErrInvalid) || errors.Is(err, channel.ErrContextInvalidated) {
			// No point working the queue while the page is unreachable.
			s.log.Warn("channel down, apply run aborted", logx.Err(err))
			s.setState(StateScanning)
			return true
		}
		// A failed application consumes no quota; move on.
		s.log.Warn("application failed",
			logx.String("job", sc.Posting.Key),
			logx.String("title", sc.Posting.Title),
			logx.Err(err))
		return false
	}
	if !res.Success {
		s.log.Warn("application rejected by page",
			logx.String("job", sc.Posting.Key),
			logx.Any("errors", res.Errors))
		return false
	}

	s.markApplied(ctx, sc.Posting.Key)

	exhausted := false
	if s.quota != nil {
		exhausted = s.quota.Record(ctx)
	}

	s.notify(ctx, kit.Notification{
		Text: fmt.Sprintf("Applied: %s at %s (score %d)",
			sc.Posting.Title, sc.Posting.Company, sc.Score),
		Priority: 5,
	})
	s.publish("application.submitted", eventbus.ApplicationSubmitted{
		Title:      sc.Posting.Title,
		Company:    sc.Posting.Company,
		Location:   sc.Posting.Location,
		URL:        sc.Posting.SourceURL,
		MatchScore: sc.Score,
		Platform:   "autopilot",
		Source:     sourceOf(sc.Posting),
	})

	if exhausted {
		s.notify(ctx, kit.Notification{
			Text: fmt.Sprintf("Daily application limit reached (%d). Resuming tomorrow.",
				s.quota.Count()),
			Priority:  7,
			DedupeKey: "quota-exhausted",
		})
		s.mu.Lock()
		s.queue = nil
		s.state = StatePaused
		s.mu.Unlock()
		return true
	}
	return false
}

// markApplied records the key in the dedup ledger. Memory first; the store
// write is best-effort.
func (s *Service) markApplied(ctx context.Context, key string) {
	now := s.clock.Now()
	s.mu.Lock()
	s.applied[key] = struct{}{}
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.AddApplied(ctx, key, now); err != nil {
		s.log.Warn("applied ledger write failed", logx.String("job", key), logx.Err(err))
	}
}

func (s *Service) appliedSnapshot() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.applied))
	for k := range s.applied {
		out[k] = struct{}{}
	}
	return out
}

func sourceOf(p jobs.Posting) string {
	if p.SourceURL == "" {
		return "unknown"
	}
	return page.SourceName(p.SourceURL)
}
