// Package app wires configuration, transport, storage and the poll loop into
// one runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/homework"
	"hwbot/internal/metrics"
	"hwbot/internal/monitor"
	"hwbot/internal/notifier"
	"hwbot/internal/observability/httpserver"
	"hwbot/internal/practicum"
	rtsup "hwbot/internal/runtime/supervisor"
	"hwbot/internal/storage"
	"hwbot/internal/systemd"
	kit "hwbot/internal/transport"
	"hwbot/internal/transport/telegram"
	logx "hwbot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	notif   *notifier.Notifier
	loop    *monitor.Loop
	metrics *metrics.Poll
	http    *httpserver.Service
	sd      *systemd.Notifier
}

// New loads the config at cfgPath ("" for defaults plus environment) and
// builds every component. The Telegram token is checked against the Bot API
// here, so bad credentials fail before the loop starts.
func New(cfgPath string) (*App, error) {
	return NewFromManager(config.NewConfigManager(cfgPath))
}

func NewFromManager(cfgm *config.ConfigManager) (_ *App, err error) {
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	loopCfg, err := mapLoopConfig(cfg)
	if err != nil {
		return nil, err
	}
	verdicts, err := mapVerdicts(cfg)
	if err != nil {
		return nil, err
	}
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogConfig(cfg.Logging))
	defer func() {
		if err != nil {
			_ = logs.Close()
		}
	}()
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	log = log.With(logx.String("comp", "app"))

	ncfg := mapNotifierConfig(cfg)
	bot, err := telegram.New(telegram.Config{
		Token:   cfg.Telegram.Token,
		APIURL:  cfg.Telegram.APIURL,
		Timeout: ncfg.SendTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	client, err := practicum.New(mapPracticumConfig(cfg), log.With(logx.String("comp", "practicum")))
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	var (
		journal notifier.Journal
		cp      monitor.Checkpointer
	)
	if store != nil {
		journal, cp = store, store
		log.Info("storage enabled", logx.String("driver", sc.Driver), logx.Bool("restore_state", loopCfg.RestoreState))
	}

	notif := notifier.New(ncfg, bot,
		kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID},
		journal, log.With(logx.String("comp", "notifier")))

	pm := metrics.New()
	sd := systemd.New(log.With(logx.String("comp", "systemd")))
	loop, err := monitor.New(loopCfg, monitor.Deps{
		Fetcher:   client,
		Extractor: homework.NewExtractor(verdicts),
		Notifier:  notif,
		Store:     cp,
		Observer:  monitor.Observers{pm, sd},
		Log:       log.With(logx.String("comp", "monitor")),
	})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logs,
		store:   store,
		notif:   notif,
		loop:    loop,
		metrics: pm,
		sd:      sd,
	}
	a.http = httpserver.New(mapHTTPConfig(cfg), pm.Handler(), func() (bool, any) {
		v := a.health(time.Now())
		return v.healthy(), v
	}, log.With(logx.String("comp", "http")))
	return a, nil
}

type healthView struct {
	metrics.Status
	Stalled bool `json:"stalled"`
}

func (v healthView) healthy() bool { return v.Status.Healthy() && !v.Stalled }

// health is unhealthy after a critical stop or while a cycle hangs.
func (a *App) health(now time.Time) healthView {
	return healthView{Status: a.metrics.Status(), Stalled: a.loop.Stalled(now)}
}

// Run blocks until ctx is cancelled (returns nil) or a component fails for
// good, such as the poll loop stopping on a critical API error.
func (a *App) Run(ctx context.Context) error {
	sup := rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	if err := a.http.Start(sup.Context()); err != nil {
		sup.Cancel()
		a.shutdown()
		return fmt.Errorf("observability server: %w", err)
	}

	reloads := a.cfgm.Subscribe(4)
	sup.Go("poll.loop", a.loop.Run)
	sup.Go("config.watch", a.cfgm.Watch)
	sup.Go0("config.reload", func(c context.Context) { a.applyReloads(c, reloads) })
	sup.Go0("systemd.watchdog", func(c context.Context) {
		a.sd.RunWatchdog(c, func() bool { return a.health(time.Now()).healthy() })
	})

	a.sd.Ready()
	a.log.Info("hwbot started", logx.String("config", a.cfgm.Path()))

	<-sup.Context().Done()
	a.sd.Stopping()
	err := sup.Err()
	if err != nil {
		a.log.Error("stopping after failure", logx.Err(err))
	} else {
		a.log.Info("stopping")
	}

	a.step("http", 2*time.Second, func(c context.Context) error { a.http.Stop(c); return nil })
	a.step("supervisor", 5*time.Second, func(c context.Context) error { return sup.Wait(c) })
	a.shutdown()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) shutdown() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
}

// step runs one shutdown step bounded by max so a stuck component cannot
// stall the rest.
func (a *App) step(name string, max time.Duration, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), max)
	defer cancel()
	start := time.Now()
	if err := fn(ctx); err != nil && !errors.Is(err, ctx.Err()) {
		a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
	}
	if ctx.Err() != nil {
		a.log.Warn("stop step deadline reached", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
	}
}

// applyReloads applies live sections of reloaded configs and warns about the
// rest.
func (a *App) applyReloads(ctx context.Context, updates <-chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next := <-updates:
			sections := config.ChangedSections(last, next)
			last = next
			if len(sections) == 0 {
				continue
			}
			for _, s := range sections {
				if s == "logging" {
					a.logs.Apply(mapLogConfig(next.Logging))
				}
			}
			if pending := config.RestartRequired(sections); len(pending) > 0 {
				a.log.Warn("config changed; restart required to apply",
					logx.String("sections", strings.Join(pending, ",")))
			}
			a.log.Info("config applied", logx.String("changed", strings.Join(sections, ",")))
		}
	}
}

// Deliveries returns recent notification attempts.
func (a *App) Deliveries() []notifier.HistoryItem { return a.notif.History() }
