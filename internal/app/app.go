package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mcstatusbot/internal/config"
	"mcstatusbot/internal/mcserver"
	"mcstatusbot/internal/monitor"
	"mcstatusbot/internal/runtime/supervisor"
	"mcstatusbot/internal/storage"
	kit "mcstatusbot/internal/transport"
	telegram "mcstatusbot/internal/transport/telegram/adapter"
	"mcstatusbot/internal/transport/telegram/router"
	logx "mcstatusbot/pkg/logx"
	"mcstatusbot/pkg/systemd"
)

// StopReason is logged when the app shuts down.
type StopReason string

const (
	StopSIGINT     StopReason = "sigint"
	StopSIGTERM    StopReason = "sigterm"
	StopFatalError StopReason = "fatal_error"
	StopAppStop    StopReason = "app_stop"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	adapter *telegram.Adapter
	client  mcserver.Client

	settings monitorSettings
	pool     *monitor.Pool
	mon      *monitor.Monitor
	svc      *monitor.Service
	sched    *monitor.Scheduler

	cmdm *router.CommandManager

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	// The Telegram log sink needs the adapter, which needs a logger: start
	// without a sender and attach it once the adapter exists.
	logSvc, log := logx.New(mapLogConfig(cfg), nil)

	pollTimeout, err := config.Duration("telegram.poll-timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:        cfg.BotToken,
		PollTimeout:  pollTimeout,
		PresenceRate: cfg.Telegram.PresenceRate,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	logSvc.SetSender(ad)
	log = log.With(logx.String("comp", "app"))

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	client, err := mcserver.New(config.EditionOf(cfg), cfg.QueryPort)
	if err != nil {
		closeStore(store)
		_ = logSvc.Close()
		return nil, err
	}

	settings, err := mapMonitorConfig(cfg)
	if err != nil {
		closeStore(store)
		_ = logSvc.Close()
		return nil, err
	}

	cmdm := router.NewCommandManager(log.With(logx.String("comp", "commands")),
		ad, config.CommandPrefix(cfg), cfg.OwnerIDs)

	return &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		store:    store,
		adapter:  ad,
		client:   client,
		settings: settings,
		pool:     monitor.NewPool(settings.Workers, log.With(logx.String("comp", "monitor.pool"))),
		cmdm:     cmdm,
		updates:  make(chan kit.Update, 256),
	}, nil
}

func closeStore(st storage.Store) {
	if st != nil {
		_ = st.Close()
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
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	runCtx := a.sup.Context()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validate(cfg) })

	a.pool.Start(a.sup)
	fetcher := monitor.NewFetcher(a.client, a.pool, a.settings.Timeout)

	cfg := a.cfgm.Get()
	ep, err := fetcher.Resolve(runCtx, cfg.ServerIP)
	if err != nil {
		if errors.Is(err, mcserver.ErrAddressNotFound) {
			return fmt.Errorf("server-ip %q: %w", cfg.ServerIP, err)
		}
		return fmt.Errorf("resolve server-ip: %w", err)
	}
	a.log.Info("server resolved", logx.String("address", cfg.ServerIP), logx.String("endpoint", ep.String()))

	a.mon = monitor.New(monitor.Options{
		Fetcher:   fetcher,
		Target:    monitor.NewTarget(cfg.ServerIP, ep),
		Setter:    &statusReporter{next: a.adapter, log: a.log},
		Debouncer: monitor.NewDebouncer(a.settings.DebounceWindow),
		Marker:    a.cfgm.MaintenanceMarker,
		Log:       a.log.With(logx.String("comp", "monitor")),
	})

	joins := monitor.NewJoinTracker(a.store, a.log.With(logx.String("comp", "monitor.joins")))
	if err := joins.Load(runCtx); err != nil {
		a.log.Warn("known groups not loaded", logx.Err(err))
	}
	a.svc = monitor.NewService(a.mon, a.cfgm, joins, a.store, a.log.With(logx.String("comp", "monitor.service")))

	// Publish a presence before anything else runs.
	if out, err := a.mon.Update(runCtx, true); err != nil {
		a.log.Warn("initial update failed", logx.Err(err))
	} else {
		a.log.Info("initial presence", logx.String("presence", out.Presence.String()), logx.Bool("pushed", out.Pushed))
	}

	a.cmdm.SetRegistry(runCtx, router.StatusCommands(a.svc))
	a.cmdm.SetJoinHandler(func(c context.Context, j kit.Join) {
		a.svc.Joined(c, j.ChatID, j.Title)
	})
	a.cmdm.SetGroupSeenHandler(a.svc.SeenGroup)

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return err
	}
	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	a.sched = monitor.NewScheduler(monitor.SchedulerOptions{
		Updater:      a.mon,
		Schedule:     a.settings.Schedule,
		Ready:        a.adapter.Ready(),
		StartupDelay: a.settings.StartupDelay,
		Log:          a.log.With(logx.String("comp", "scheduler")),
	})
	if err := a.sched.Start(runCtx); err != nil {
		return err
	}

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	a.sup.Go("systemd.watchdog", func(c context.Context) error {
		return systemd.Watchdog(c, a.log.With(logx.String("comp", "systemd")))
	})

	systemd.Ready(a.log)
	a.log.Info("app started", logx.String("server", a.mon.Target().Address()))
	return nil
}

// applyConfig applies the parts of a reloaded config that can change live.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs, restart := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(mapLogConfig(newCfg))
	a.cmdm.SetOwners(newCfg.OwnerIDs)
	a.cmdm.SetPrefix(config.CommandPrefix(newCfg))

	if restart {
		var pending []string
		for _, s := range sections {
			switch s {
			case "owner-ids", "prefix", "maintenance-mode-detection", "logging":
				continue
			case "server":
				// `server set` writes the file itself; that reload is already live.
				if strings.TrimSpace(newCfg.ServerIP) == a.mon.Target().Address() &&
					config.EditionOf(oldCfg) == config.EditionOf(newCfg) &&
					oldCfg.QueryPort == newCfg.QueryPort {
					continue
				}
			}
			pending = append(pending, s)
		}
		if len(pending) > 0 {
			a.log.Warn("config changed; restart required for changes to take effect", logx.String("sections", strings.Join(pending, ",")))
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	systemd.Stopping(a.log)

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	// run a shutdown step with an upper bound so one component can't stall the whole stop
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		if max <= 0 {
			a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
			return
		}
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

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
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error {
		if a.sched == nil {
			return nil
		}
		return a.sched.Stop(c)
	})
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("supervisor", 3*time.Second, func(c context.Context) error {
		if err := a.sup.Wait(c); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	// Storage last: in-flight handlers may still append audit entries.
	step("storage", time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	return a.logs.Close()
}

// statusReporter mirrors every pushed presence into the systemd status line.
type statusReporter struct {
	next kit.PresenceSetter
	log  logx.Logger
}

func (r *statusReporter) SetPresence(ctx context.Context, status kit.PresenceStatus, text string) error {
	if err := r.next.SetPresence(ctx, status, text); err != nil {
		return err
	}
	systemd.Status(r.log, fmt.Sprintf("%s: %s", status, text))
	return nil
}
