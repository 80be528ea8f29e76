package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/alerting"
	"pricewatch/internal/alerts"
	"pricewatch/internal/fetcher"
	"pricewatch/internal/scheduler"
	"pricewatch/internal/series"
	"pricewatch/internal/storage"
)

// DefaultLedgerKey stores the last notified observation date per alert.
const DefaultLedgerKey = "alertNotifications"

// AlertSource yields the current alert collection.
type AlertSource interface {
	Load(ctx context.Context) []alerts.UserAlert
}

// Evaluation is the outcome of checking one alert.
type Evaluation struct {
	Alert     alerts.UserAlert
	Latest    series.PriceRecord
	HasLatest bool
	Triggered bool
	// Notified is true when a notification was dispatched in this cycle.
	Notified bool
	Err      error
}

// Options parameterise the watcher.
type Options struct {
	Window    int
	LedgerKey string
}

// Service evaluates alerts against the latest observed prices.
type Service struct {
	scheduler *scheduler.Scheduler
	alerts    AlertSource
	prices    fetcher.PriceSource
	notifier  alerting.Notifier
	kv        storage.KV
	logger    zerolog.Logger

	window    int
	ledgerKey string
}

// New constructs the watcher. sched may be nil when only Check is used; kv may be
// nil, in which case notification dedupe is kept in memory for the process lifetime.
func New(opts Options, sched *scheduler.Scheduler, alertSource AlertSource, prices fetcher.PriceSource, notifier alerting.Notifier, kv storage.KV, logger zerolog.Logger) *Service {
	key := opts.LedgerKey
	if key == "" {
		key = DefaultLedgerKey
	}
	if kv == nil {
		kv = storage.NewMemory()
	}
	return &Service{
		scheduler: sched,
		alerts:    alertSource,
		prices:    prices,
		notifier:  notifier,
		kv:        kv,
		logger:    logger.With().Str("component", "watcher").Logger(),
		window:    opts.Window,
		ledgerKey: key,
	}
}

// Run begins the periodic check loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick runs one watch cycle and notifies newly triggered alerts.
func (s *Service) ProcessTick(ctx context.Context, at time.Time) error {
	evals, err := s.Check(ctx, true)
	if err != nil {
		return err
	}

	var triggered, notified, failed int
	for _, e := range evals {
		if e.Triggered {
			triggered++
		}
		if e.Notified {
			notified++
		}
		if e.Err != nil {
			failed++
		}
	}
	s.logger.Info().
		Time("slot", at).
		Int("alerts", len(evals)).
		Int("triggered", triggered).
		Int("notified", notified).
		Int("failed", failed).
		Msg("watch cycle complete")
	return nil
}

// Check evaluates every alert. Prices are fetched once per commodity/region pair.
// A fetch failure marks the affected alerts and does not abort the cycle. When notify
// is set, each triggered alert is dispatched at most once per observation date.
func (s *Service) Check(ctx context.Context, notify bool) ([]Evaluation, error) {
	list := s.alerts.Load(ctx)
	if len(list) == 0 {
		return nil, nil
	}

	type pairKey struct{ commodity, region string }
	type fetched struct {
		latest series.PriceRecord
		ok     bool
		err    error
	}
	cache := make(map[pairKey]fetched)

	var ledger map[string]string
	if notify {
		ledger = s.loadLedger(ctx)
	}
	ledgerDirty := false

	evals := make([]Evaluation, 0, len(list))
	for _, alert := range list {
		if err := ctx.Err(); err != nil {
			return evals, err
		}

		key := pairKey{alert.Commodity, alert.Region}
		f, seen := cache[key]
		if !seen {
			records, err := s.prices.FetchPrices(ctx, alert.Commodity, alert.Region, s.window)
			if err != nil {
				f.err = err
			} else {
				f.latest, f.ok = series.Latest(records)
			}
			cache[key] = f
		}

		eval := Evaluation{Alert: alert, Latest: f.latest, HasLatest: f.ok, Err: f.err}
		if f.err != nil {
			s.logger.Warn().Err(f.err).Str("alert_id", alert.ID).Msg("price fetch failed for alert")
			evals = append(evals, eval)
			continue
		}
		eval.Triggered = Triggered(alert, f.latest, f.ok)

		if eval.Triggered && notify && s.notifier != nil {
			date := f.latest.Date.Key()
			if ledger[alert.ID] == date {
				s.logger.Debug().Str("alert_id", alert.ID).Str("date", date).Msg("already notified for this observation")
			} else {
				note := alerting.Notification{
					Alert:       alert,
					LatestPrice: f.latest.Price,
					Date:        f.latest.Date,
					Unit:        f.latest.Unit,
				}
				if err := s.notifier.Notify(ctx, note); err != nil {
					eval.Err = fmt.Errorf("notify: %w", err)
					s.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to dispatch alert")
				} else {
					eval.Notified = true
					ledger[alert.ID] = date
					ledgerDirty = true
				}
			}
		}
		evals = append(evals, eval)
	}

	if ledgerDirty {
		s.saveLedger(ctx, pruneLedger(ledger, list))
	}
	return evals, nil
}

// Triggered reports whether the latest observed price has reached the threshold.
func Triggered(alert alerts.UserAlert, latest series.PriceRecord, ok bool) bool {
	if !ok {
		return false
	}
	return latest.Price.GreaterThanOrEqual(alert.Threshold)
}

func (s *Service) loadLedger(ctx context.Context) map[string]string {
	ledger := make(map[string]string)
	raw, ok, err := s.kv.Get(ctx, s.ledgerKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read notification ledger; starting empty")
		return ledger
	}
	if !ok || raw == "" {
		return ledger
	}
	if err := json.Unmarshal([]byte(raw), &ledger); err != nil {
		s.logger.Warn().Err(err).Msg("malformed notification ledger; starting empty")
		return make(map[string]string)
	}
	return ledger
}

func (s *Service) saveLedger(ctx context.Context, ledger map[string]string) {
	data, err := json.Marshal(ledger)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode notification ledger")
		return
	}
	if err := s.kv.Set(ctx, s.ledgerKey, string(data)); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist notification ledger")
	}
}

// pruneLedger drops entries for alerts that no longer exist.
func pruneLedger(ledger map[string]string, list []alerts.UserAlert) map[string]string {
	live := make(map[string]struct{}, len(list))
	for _, a := range list {
		live[a.ID] = struct{}{}
	}
	for id := range ledger {
		if _, ok := live[id]; !ok {
			delete(ledger, id)
		}
	}
	return ledger
}

// FailedEvaluations joins the errors of a cycle.
func FailedEvaluations(evals []Evaluation) error {
	var errs []error
	for _, e := range evals {
		if e.Err != nil {
			errs = append(errs, fmt.Errorf("alert %s: %w", e.Alert.ID, e.Err))
		}
	}
	return errors.Join(errs...)
}
