// Package autopilot runs the discover, score, apply loop: periodic scans of
// the current job board page, scoring against the user profile, and paced
// submission of qualified applications under the daily quota.
package autopilot

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"jobpilot/internal/eventbus"
	"jobpilot/internal/jobs"
	"jobpilot/internal/match"
	"jobpilot/internal/page"
	"jobpilot/internal/quota"
	rtsup "jobpilot/internal/runtime/supervisor"
	"jobpilot/internal/storage"
	kit "jobpilot/internal/transport"
	logx "jobpilot/pkg/logx"
)

// Deps wires the autopilot's collaborators.
type Deps struct {
	Store    storage.Store
	Quota    *quota.Tracker
	Page     PageDriver
	Scorer   *match.Scorer
	Notifier Notifier
	Bus      eventbus.Bus
	Log      logx.Logger
	Clock    Clock
}

type Service struct {
	cfg      Config
	log      logx.Logger
	bus      eventbus.Bus
	store    storage.Store
	quota    *quota.Tracker
	page     PageDriver
	scorer   *match.Scorer
	notifier Notifier
	clock    Clock

	mu      sync.Mutex
	state   State
	profile jobs.Profile
	prefs   jobs.Preferences
	applied map[string]struct{}
	queue   []jobs.Scored

	// kick coalesces cycle triggers; the run loop is the only cycle executor,
	// so cycles never overlap.
	kick chan struct{}
	cron *cron.Cron
	sup  *rtsup.Supervisor
}

func New(cfg Config, deps Deps) *Service {
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = RealClock()
	}
	return &Service{
		cfg:      cfg.withDefaults(),
		log:      log,
		bus:      deps.Bus,
		store:    deps.Store,
		quota:    deps.Quota,
		page:     deps.Page,
		scorer:   deps.Scorer,
		notifier: deps.Notifier,
		clock:    clock,
		state:    StateInactive,
		applied:  map[string]struct{}{},
		kick:     make(chan struct{}, 1),
	}
}

// Start restores persisted state and begins the scan schedule.
func (s *Service) Start(ctx context.Context, profile jobs.Profile, prefs jobs.Preferences) error {
	if err := s.restore(ctx, profile, prefs); err != nil {
		return err
	}

	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log.With(logx.String("comp", "autopilot"))),
		rtsup.WithCancelOnError(false),
	)
	s.sup.GoRestart("run", func(c context.Context) error {
		s.runLoop(c)
		return c.Err()
	}, rtsup.WithPublishFirstError(true))

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.ScanSpec, s.kickCycle); err != nil {
		return fmt.Errorf("scan schedule %q: %w", s.cfg.ScanSpec, err)
	}
	s.cron.Start()

	s.mu.Lock()
	enabled := s.prefs.Enabled
	s.mu.Unlock()
	if enabled {
		s.setState(StateScanning)
		s.kickCycle()
	}
	return nil
}

func (s *Service) restore(ctx context.Context, profile jobs.Profile, prefs jobs.Preferences) error {
	if s.store != nil {
		stored, ok, err := s.store.LoadPreferences(ctx)
		if err != nil {
			return fmt.Errorf("load preferences: %w", err)
		}
		if ok {
			prefs = stored
		}
		keys, err := s.store.AppliedKeys(ctx)
		if err != nil {
			return fmt.Errorf("load applied keys: %w", err)
		}
		if keys != nil {
			s.applied = keys
		}
	}
	if s.quota != nil {
		if err := s.quota.Restore(ctx); err != nil {
			return fmt.Errorf("restore quota: %w", err)
		}
	}

	s.mu.Lock()
	s.profile = profile
	s.prefs = prefs
	s.mu.Unlock()
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	if s.cron != nil {
		cronCtx := s.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-ctx.Done():
		}
	}
	if s.sup != nil {
		s.sup.Cancel()
		_ = s.sup.Wait(ctx)
	}
}

// Apply replaces the profile and preferences, persists the preferences, and
// follows an enabled-flag flip with the corresponding toggle.
func (s *Service) Apply(ctx context.Context, profile jobs.Profile, prefs jobs.Preferences) {
	s.mu.Lock()
	wasEnabled := s.prefs.Enabled
	s.profile = profile
	s.prefs = prefs
	s.mu.Unlock()

	s.persistPrefs(ctx, prefs)

	switch {
	case prefs.Enabled && !wasEnabled:
		s.start(ctx)
	case !prefs.Enabled && wasEnabled:
		s.halt(ctx)
	}
}

// Toggle switches the autopilot on or off and persists the flag.
func (s *Service) Toggle(ctx context.Context, on bool) {
	s.mu.Lock()
	if s.prefs.Enabled == on {
		s.mu.Unlock()
		return
	}
	s.prefs.Enabled = on
	prefs := s.prefs
	s.mu.Unlock()

	s.persistPrefs(ctx, prefs)
	if on {
		s.start(ctx)
	} else {
		s.halt(ctx)
	}
}

func (s *Service) start(ctx context.Context) {
	s.setState(StateScanning)
	s.notify(ctx, kit.Notification{Text: "Autopilot started", Priority: 5})
	s.publish("autopilot.started", nil)
	s.kickCycle()
}

// halt clears the in-memory queue; postings are rediscovered on the next scan.
func (s *Service) halt(ctx context.Context) {
	s.mu.Lock()
	s.state = StateInactive
	s.queue = nil
	s.mu.Unlock()

	applied := 0
	if s.quota != nil {
		applied = s.quota.Count()
	}
	s.notify(ctx, kit.Notification{
		Text:     fmt.Sprintf("Autopilot stopped. Applied to %d jobs today.", applied),
		Priority: 5,
	})
	s.publish("autopilot.stopped", nil)
}

// Kick requests a cycle now. A pending kick coalesces with new ones.
func (s *Service) Kick() { s.kickCycle() }

func (s *Service) kickCycle() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Service) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			s.cycle(ctx)
		}
	}
}

func (s *Service) Status() Status {
	s.mu.Lock()
	st := s.state
	queued := len(s.queue)
	s.mu.Unlock()
	applied := 0
	if s.quota != nil {
		applied = s.quota.Count()
	}
	return Status{State: st, Queued: queued, AppliedToday: applied}
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Service) persistPrefs(ctx context.Context, prefs jobs.Preferences) {
	if s.store == nil {
		return
	}
	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		s.log.Warn("preferences persist failed", logx.Err(err))
	}
}

func (s *Service) notify(ctx context.Context, n kit.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Debug("notification dropped", logx.Err(err))
	}
}

func (s *Service) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: s.clock.Now(), Data: data})
}

var _ PageDriver = (*page.Client)(nil)
