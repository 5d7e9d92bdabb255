// Package app wires the services together: config, logging, storage,
// transport, scheduler, notifier, content and the command plugins, all
// supervised under one lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"visionbot/internal/bot"
	"visionbot/internal/config"
	"visionbot/internal/content"
	"visionbot/internal/notify"
	"visionbot/internal/ops"
	"visionbot/internal/runtime/supervisor"
	"visionbot/internal/scheduler"
	"visionbot/internal/storage"
	"visionbot/internal/transport"
	"visionbot/internal/transport/telegram"
	"visionbot/pkg/logx"

	cardsplugin "visionbot/plugins/cards"
	focusplugin "visionbot/plugins/focus"
	gamifyplugin "visionbot/plugins/gamify"
	manifestplugin "visionbot/plugins/manifest"
	remindersplugin "visionbot/plugins/reminders"
	systemplugin "visionbot/plugins/system"
)

const (
	updateBuffer = 64
	stopTimeout  = 10 * time.Second
)

type App struct {
	version string

	cfgMgr  *config.Manager
	logSvc  *logx.Service
	log     logx.Logger
	store   *storage.Store
	adapter *telegram.Adapter
	sched   *scheduler.Service
	notify  *notify.Service
	library *content.Service
	router  *bot.Router
	opsSrv  *ops.Server

	startedAt time.Time
}

// New loads config and constructs every service. Nothing is started yet.
func New(configPath, version string) (*App, error) {
	a := &App{version: version, startedAt: time.Now()}

	a.cfgMgr = config.NewManager(configPath)
	cfg, err := a.cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a.logSvc, a.log = logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console || !cfg.Logging.File.Enabled,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	a.cfgMgr.SetLogger(a.log.With(logx.String("svc", "config")))
	a.cfgMgr.SetValidator(func(ctx context.Context, c *config.Config) error {
		return validateConfig(c)
	})

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	a.adapter, err = telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, a.log.With(logx.String("svc", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	a.store, err = storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, a.log.With(logx.String("svc", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	defaultJobTimeout, err := config.ParseDurationOrDefault("scheduler.default_timeout", cfg.Scheduler.DefaultTimeout, time.Minute)
	if err != nil {
		return nil, err
	}
	a.sched = scheduler.New(scheduler.Config{
		Enabled:        true,
		Workers:        cfg.Scheduler.Workers,
		DefaultTimeout: defaultJobTimeout,
		HistorySize:    cfg.Scheduler.HistorySize,
		Timezone:       cfg.Scheduler.Timezone,
	}, a.log.With(logx.String("svc", "scheduler")))

	a.notify = notify.New(notify.Config{
		RatePerSec: float64(cfg.Notifier.RatePerSec),
	}, a.adapter, a.log.With(logx.String("svc", "notify")))

	lib, err := content.Load(content.Config{
		ManifestFile:        cfg.Content.ManifestFile,
		PartnerManifestFile: cfg.Content.PartnerManifestFile,
		CardsFile:           cfg.Content.CardsFile,
	}, a.log.With(logx.String("svc", "content")))
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	picker := content.NewPicker(a.store, a.log.With(logx.String("svc", "rotation")))
	a.library = content.NewService(lib, picker,
		strconv.FormatInt(cfg.Recipients.Me, 10),
		strconv.FormatInt(cfg.Recipients.Partner, 10),
	)

	deps := bot.Deps{
		Logger:    a.log,
		Adapter:   a.adapter,
		Notify:    a.notify,
		Scheduler: a.sched,
		Store:     a.store,
		Content:   a.library,
		Config:    func() config.Config { return *a.cfgMgr.Get() },
	}
	a.router = bot.NewRouter(deps, a.log.With(logx.String("svc", "router")))

	sys := systemplugin.New(version)
	if err := a.router.Register(context.Background(),
		sys,
		manifestplugin.New(),
		cardsplugin.New(),
		focusplugin.New(),
		gamifyplugin.New(),
		remindersplugin.New(),
	); err != nil {
		return nil, err
	}
	sys.SetHelpFunc(a.router.HelpText)

	a.opsSrv = ops.NewServer(ops.Config{
		Enabled: cfg.Ops.Enabled,
		Addr:    cfg.Ops.Addr,
	}, a.statusSnapshot, a.log.With(logx.String("svc", "ops")))

	return a, nil
}

// Run starts everything and blocks until ctx is canceled or a fatal error
// escapes the supervisor.
func (a *App) Run(ctx context.Context) error {
	sup := supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("svc", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)

	updates := make(chan transport.Update, updateBuffer)
	if err := a.adapter.Start(sup.Context(), updates); err != nil {
		return fmt.Errorf("start adapter: %w", err)
	}

	a.sched.Start(sup.Context())

	if err := a.router.StartPlugins(sup.Context()); err != nil {
		a.shutdown(sup)
		return err
	}

	sup.Go0("router.run", func(rctx context.Context) {
		a.router.Run(rctx, sup, updates)
	})

	sup.Go("config.watch", func(wctx context.Context) error {
		return a.cfgMgr.Watch(wctx)
	})
	sup.Go0("config.reload", func(rctx context.Context) {
		a.reloadLoop(rctx)
	})

	if a.opsSrv.Enabled() {
		sup.Go("ops.http", func(octx context.Context) error {
			return a.opsSrv.Start(octx)
		})
	}

	sup.Go0("menu.sync", func(mctx context.Context) {
		sctx, cancel := context.WithTimeout(mctx, 15*time.Second)
		defer cancel()
		a.router.SyncMenu(sctx)
	})

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("visionbot running", logx.String("version", a.version))

	select {
	case <-ctx.Done():
	case <-sup.Context().Done():
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.shutdown(sup)

	if err := sup.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reloadLoop applies committed config changes: logging sinks, content pools
// and plugin schedules.
func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok || cfg == nil {
				return
			}
			a.log.Info("config reloaded, applying")

			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console || !cfg.Logging.File.Enabled,
				File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
			})

			lib, err := content.Load(content.Config{
				ManifestFile:        cfg.Content.ManifestFile,
				PartnerManifestFile: cfg.Content.PartnerManifestFile,
				CardsFile:           cfg.Content.CardsFile,
			}, a.log)
			if err != nil {
				a.log.Warn("content reload failed, keeping previous pools", logx.Err(err))
			} else {
				a.library.SetLibrary(lib)
			}

			a.router.NotifyConfigChange(ctx, *cfg)
		}
	}
}

func (a *App) shutdown(sup *supervisor.Supervisor) {
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	a.sched.Stop(stopCtx)
	a.router.StopPlugins(stopCtx)
	if err := a.adapter.Stop(stopCtx); err != nil {
		a.log.Warn("adapter stop", logx.Err(err))
	}

	sup.Cancel()
	if err := sup.Wait(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("supervisor drain", logx.Err(err))
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close", logx.Err(err))
	}
	_ = a.logSvc.Close()
}

func (a *App) statusSnapshot() any {
	cfg := a.cfgMgr.Get()
	return map[string]any{
		"status":   "ok",
		"version":  a.version,
		"uptime":   time.Since(a.startedAt).Round(time.Second).String(),
		"timezone": cfg.Scheduler.Timezone,
		"time":     time.Now().In(a.sched.Location()).Format(time.RFC3339),
	}
}

func validateConfig(cfg *config.Config) error {
	if cfg.Telegram.Token == "" {
		return errors.New("telegram.token is required")
	}
	if cfg.Recipients.Me == 0 {
		return errors.New("recipients.me is required")
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	for _, at := range cfg.Delivery.ManifestTimes {
		if _, _, err := scheduler.ParseHHMM(at); err != nil {
			return fmt.Errorf("delivery.manifest_times: %w", err)
		}
	}
	for name, at := range map[string]string{
		"delivery.card_prompt_at": cfg.Delivery.CardPromptAt,
		"delivery.card_reveal_at": cfg.Delivery.CardRevealAt,
		"reminders.morning":       cfg.Reminders.Morning,
		"reminders.mid_morning":   cfg.Reminders.MidMorning,
		"reminders.afternoon":     cfg.Reminders.Afternoon,
		"reminders.evening":       cfg.Reminders.Evening,
		"reminders.night":         cfg.Reminders.Night,
		"reminders.weekly_at":     cfg.Reminders.WeeklyAt,
	} {
		if _, _, err := scheduler.ParseHHMM(at); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if _, err := config.ParseDurationOrDefault("delivery.partner_delay", cfg.Delivery.PartnerDelay, time.Minute); err != nil {
		return err
	}
	return nil
}
