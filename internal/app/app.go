// Package app assembles and runs the jobpilot process.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"jobpilot/internal/autopilot"
	"jobpilot/internal/channel"
	"jobpilot/internal/config"
	"jobpilot/internal/eventbus"
	"jobpilot/internal/match"
	"jobpilot/internal/notify"
	"jobpilot/internal/page"
	"jobpilot/internal/quota"
	rtsup "jobpilot/internal/runtime/supervisor"
	"jobpilot/internal/storage"
	kit "jobpilot/internal/transport"
	telegram "jobpilot/internal/transport/telegram"
	logx "jobpilot/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store   storage.Store
	adapter kit.Adapter
	notif   *notify.Service
	ch      *channel.Layer
	pilot   *autopilot.Service
	tracker *quota.Tracker
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(cfg.LogSettings())
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	sc, err := cfg.StorageSettings()
	if err != nil {
		return nil, err
	}
	if sc.Driver != "" {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	// Notification adapter: Telegram when configured, log output otherwise.
	var adapter kit.Adapter
	if cfg.Telegram != nil && cfg.Telegram.Token != "" {
		pollTimeout, err := cfg.TelegramPollTimeout()
		if err != nil {
			return nil, err
		}
		ad, err := telegram.New(telegram.Config{
			Token:       cfg.Telegram.Token,
			PollTimeout: pollTimeout,
		}, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		adapter = ad
	} else {
		adapter = kit.NewLogAdapter(log.With(logx.String("comp", "notify")))
	}

	ncfg, err := cfg.NotifierSettings()
	if err != nil {
		return nil, err
	}
	notif := notify.New(ncfg, adapter, log.With(logx.String("comp", "notify")), bus)

	tracker := quota.New(store, log.With(logx.String("comp", "quota")), nil)

	chCfg, err := cfg.ChannelSettings()
	if err != nil {
		return nil, err
	}
	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		adapter: adapter,
		notif:   notif,
		tracker: tracker,
	}

	tr := channel.NewHTTPTransport(cfg.Channel.BridgeURL, &http.Client{Timeout: 60 * time.Second})
	a.ch = channel.New(tr, chCfg,
		channel.WithLogger(log.With(logx.String("comp", "channel"))),
		channel.WithInvalidatedFunc(func() {
			a.notifyUser(kit.Notification{
				Text:      "Page connection lost. Autopilot will resume once the page is reachable again.",
				Priority:  7,
				DedupeKey: "channel-invalid",
			})
		}),
	)

	apCfg, err := cfg.AutopilotSettings()
	if err != nil {
		return nil, err
	}
	a.pilot = autopilot.New(apCfg, autopilot.Deps{
		Store:    store,
		Quota:    tracker,
		Page:     page.NewClient(a.ch),
		Scorer:   match.NewScorer(),
		Notifier: a,
		Bus:      bus,
		Log:      log.With(logx.String("comp", "autopilot")),
	})

	return a, nil
}

// Notify implements autopilot.Notifier by stamping the configured chat target.
func (a *App) Notify(ctx context.Context, n kit.Notification) error {
	if cfg := a.cfgm.Get(); cfg != nil && cfg.Telegram != nil {
		n.Target = kit.ChatTarget{ChatID: cfg.Telegram.ChatID}
	}
	return a.notif.Notify(ctx, n)
}

func (a *App) notifyUser(n kit.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Notify(ctx, n); err != nil {
		a.log.Debug("notification dropped", logx.Err(err))
	}
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return cfg.Validate()
	})

	if a.notif.Enabled() {
		a.notif.Start(a.sup.Context())
	}

	a.sup.GoRestart("channel.probe", func(c context.Context) error {
		return a.ch.RunProbe(c)
	}, rtsup.WithPublishFirstError(true))

	cfg := a.cfgm.Get()
	if err := a.pilot.Start(a.sup.Context(), cfg.CandidateProfile(), cfg.JobPreferences()); err != nil {
		return err
	}

	// Debug-level event trace.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started", logx.String("config", cfg.Describe()))
	return nil
}

func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(cfg.LogSettings())

	if ncfg, err := cfg.NotifierSettings(); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		prevEnabled := a.notif.Enabled()
		a.notif.Apply(ncfg)
		if prevEnabled && !ncfg.Enabled {
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		} else if !prevEnabled && ncfg.Enabled {
			a.notif.Start(ctx)
		}
	}

	// Preferences and profile replace the running set; an enabled flip
	// doubles as the on/off toggle.
	a.pilot.Apply(ctx, cfg.CandidateProfile(), cfg.JobPreferences())

	a.log.Info("config reloaded", logx.String("config", cfg.Describe()))
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Each shutdown step is bounded so one component can't stall the stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem > 0 && rem < max {
					max = rem
				}
			}
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("autopilot", 3*time.Second, func(c context.Context) error { a.pilot.Stop(c); return nil })
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("storage", 1*time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// Autopilot exposes the autopilot service for operational hooks.
func (a *App) Autopilot() *autopilot.Service { return a.pilot }
