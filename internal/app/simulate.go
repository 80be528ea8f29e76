package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pricewatch/internal/alerts"
	"pricewatch/internal/fetcher"
	"pricewatch/internal/series"
	"pricewatch/internal/service"
	"pricewatch/internal/storage"
)

// SimulateAlert pushes one notification for an existing alert at the given price,
// so the notification channel can be tested without waiting for real data.
func (a *App) SimulateAlert(ctx context.Context, id string, price decimal.Decimal) error {
	if price.Sign() <= 0 {
		return fmt.Errorf("simulated price must be positive")
	}

	kv, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	store := a.alertStore(kv)
	store.Load(ctx)
	alert, ok := store.Get(id)
	if !ok {
		return fmt.Errorf("no alert with id %s", id)
	}
	if price.LessThan(alert.Threshold) {
		return fmt.Errorf("price %s is below the alert threshold %s", price.StringFixed(2), alert.Threshold.StringFixed(2))
	}

	prices := &staticPriceSource{record: series.PriceRecord{
		Date:      series.NewDate(a.Now()),
		Region:    alert.Region,
		Commodity: alert.Commodity,
		Price:     price,
	}}

	// an in-memory ledger so simulations never suppress real notifications
	svc := service.New(service.Options{}, nil, singleAlert{alert}, prices, a.newNotifier(), storage.NewMemory(), a.Logger)
	evals, err := svc.Check(ctx, true)
	if err != nil {
		return err
	}
	return service.FailedEvaluations(evals)
}

type singleAlert struct {
	alert alerts.UserAlert
}

func (s singleAlert) Load(context.Context) []alerts.UserAlert {
	return []alerts.UserAlert{s.alert}
}

type staticPriceSource struct {
	record series.PriceRecord
}

func (s *staticPriceSource) FetchPrices(ctx context.Context, commodity, region string, window int) ([]series.PriceRecord, error) {
	if commodity != s.record.Commodity || region != s.record.Region {
		return nil, nil
	}
	return []series.PriceRecord{s.record}, nil
}

var (
	_ fetcher.PriceSource = (*staticPriceSource)(nil)
	_ service.AlertSource = singleAlert{}
)
