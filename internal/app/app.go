package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/alerting"
	"pricewatch/internal/alerts"
	"pricewatch/internal/config"
	"pricewatch/internal/fetcher"
	"pricewatch/internal/scheduler"
	"pricewatch/internal/service"
	"pricewatch/internal/session"
	"pricewatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	// Now is overridable so exports get stable file names in tests.
	Now func() time.Time
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Now:    time.Now,
	}
}

func (a *App) newClient() *fetcher.Client {
	api := a.Config.API
	return fetcher.NewClient(fetcher.ClientOptions{
		BaseURL:         api.BaseURL,
		Timeout:         api.Timeout,
		UserAgent:       api.UserAgent,
		BreakerFailures: api.BreakerFailures,
		BreakerCooldown: api.BreakerCooldown,
	}, a.Logger)
}

func (a *App) newSession(client *fetcher.Client) *session.Session {
	return session.New(client, client, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

// openStore opens the configured KV backend. The returned closer is never nil.
func (a *App) openStore(ctx context.Context) (storage.KV, func(), error) {
	kv, err := storage.Open(ctx, a.Config.Storage)
	if err != nil {
		return nil, nil, err
	}

	closer := func() {}
	if c, ok := kv.(storage.Closer); ok {
		closer = func() {
			if err := c.Close(); err != nil {
				a.Logger.Warn().Err(err).Msg("close storage")
			}
		}
	}
	return kv, closer, nil
}

func (a *App) alertStore(kv storage.KV) *alerts.Store {
	return alerts.NewStore(kv, alerts.Options{
		Key:        a.Config.Alerts.Key,
		DateFormat: a.Config.Alerts.DateFormat,
		Now:        a.Now,
	}, a.Logger)
}

// SelectionFor builds a selection, taking zero window or threshold from config.
func (a *App) SelectionFor(commodity, region string, window int, z float64) session.Selection {
	if window == 0 {
		window = a.Config.Analysis.Window
	}
	if z == 0 {
		z = a.Config.Analysis.ZThreshold
	}
	return session.Selection{Commodity: commodity, Region: region, Window: window, ZThreshold: z}
}

// Watch runs the alert watch loop until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kv, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	w := a.Config.Watch
	sched, err := scheduler.New(scheduler.Options{
		Interval:     w.Interval,
		AlignToStart: w.AlignToStart,
		Immediate:    w.Immediate,
		StartupDelay: w.StartupDelay,
	}, a.Logger)
	if err != nil {
		return err
	}

	svc := service.New(service.Options{
		Window:    a.Config.Analysis.Window,
		LedgerKey: w.LedgerKey,
	}, sched, a.alertStore(kv), a.newClient(), a.newNotifier(), kv, a.Logger)

	a.Logger.Info().Dur("interval", w.Interval).Msg("starting alert watch")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	a.Logger.Info().Msg("alert watch stopped")
	return nil
}

// AnalyzeOptions configure the analyze command.
type AnalyzeOptions struct {
	Selection session.Selection
	// Dashboard adds the summary cards, which costs extra metadata calls.
	Dashboard bool
}

// ExportOptions hold parameters for exporting an analysis.
type ExportOptions struct {
	Selection session.Selection
	Dir       string
	Chart     bool
}

// AlertCreateOptions hold raw user input for a new alert.
type AlertCreateOptions struct {
	Commodity string
	Region    string
	Threshold string
}
