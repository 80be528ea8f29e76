package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/alerting"
	"pricewatch/internal/alerts"
	"pricewatch/internal/series"
	"pricewatch/internal/storage"
)

type staticAlerts []alerts.UserAlert

func (s staticAlerts) Load(context.Context) []alerts.UserAlert { return s }

type fakePrices struct {
	byPair map[string][]series.PriceRecord
	fail   map[string]error
	calls  map[string]int
}

func (f *fakePrices) FetchPrices(_ context.Context, commodity, region string, _ int) ([]series.PriceRecord, error) {
	key := commodity + "/" + region
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[key]++
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	return f.byPair[key], nil
}

type recordingNotifier struct {
	sent []alerting.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n alerting.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func price(date string, v int64) series.PriceRecord {
	return series.PriceRecord{Date: series.MustParseDate(date), Region: "Moscow", Commodity: "Bread", Price: decimal.NewFromInt(v), Unit: "RUB/kg"}
}

func alert(id string, threshold int64) alerts.UserAlert {
	return alerts.UserAlert{ID: id, Commodity: "Bread", Region: "Moscow", Threshold: decimal.NewFromInt(threshold), CreatedAt: "6/30/2024"}
}

func TestCheckEvaluatesLatestPrice(t *testing.T) {
	prices := &fakePrices{byPair: map[string][]series.PriceRecord{
		"Bread/Moscow": {price("2024-05-01", 95), price("2024-06-01", 80)},
	}}
	list := staticAlerts{alert("low", 80), alert("high", 90)}
	svc := New(Options{}, nil, list, prices, nil, nil, zerolog.Nop())

	evals, err := svc.Check(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, evals, 2)

	assert.True(t, evals[0].Triggered, "latest equal to threshold triggers")
	assert.False(t, evals[1].Triggered, "older higher price must not trigger")
	assert.Equal(t, "2024-06-01", evals[0].Latest.Date.Key())
	assert.Equal(t, 1, prices.calls["Bread/Moscow"], "prices fetched once per pair")
}

func TestCheckNotifiesOncePerObservation(t *testing.T) {
	prices := &fakePrices{byPair: map[string][]series.PriceRecord{
		"Bread/Moscow": {price("2024-06-01", 100)},
	}}
	notifier := &recordingNotifier{}
	kv := storage.NewMemory()
	svc := New(Options{}, nil, staticAlerts{alert("a1", 90)}, prices, notifier, kv, zerolog.Nop())

	evals, err := svc.Check(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, evals[0].Notified)

	evals, err = svc.Check(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, evals[0].Triggered)
	assert.False(t, evals[0].Notified)
	require.Len(t, notifier.sent, 1)

	raw, ok, err := kv.Get(context.Background(), DefaultLedgerKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"a1":"2024-06-01"}`, raw)

	prices.byPair["Bread/Moscow"] = append(prices.byPair["Bread/Moscow"], price("2024-07-01", 101))
	evals, err = svc.Check(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, evals[0].Notified, "a new observation date notifies again")
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "2024-07-01", notifier.sent[1].Date.Key())
}

func TestCheckFetchFailureIsPerPair(t *testing.T) {
	milk := alerts.UserAlert{ID: "m", Commodity: "Milk", Region: "Kazan", Threshold: decimal.NewFromInt(1)}
	prices := &fakePrices{
		byPair: map[string][]series.PriceRecord{"Bread/Moscow": {price("2024-06-01", 100)}},
		fail:   map[string]error{"Milk/Kazan": errors.New("backend down")},
	}
	svc := New(Options{}, nil, staticAlerts{milk, alert("b", 50)}, prices, &recordingNotifier{}, nil, zerolog.Nop())

	evals, err := svc.Check(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Error(t, evals[0].Err)
	assert.False(t, evals[0].Triggered)
	assert.True(t, evals[1].Notified)
	assert.ErrorContains(t, FailedEvaluations(evals), "alert m")
}

func TestCheckNotifierFailureRetriesNextCycle(t *testing.T) {
	prices := &fakePrices{byPair: map[string][]series.PriceRecord{"Bread/Moscow": {price("2024-06-01", 100)}}}
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	svc := New(Options{}, nil, staticAlerts{alert("a1", 90)}, prices, notifier, nil, zerolog.Nop())

	evals, err := svc.Check(context.Background(), true)
	require.NoError(t, err)
	assert.Error(t, evals[0].Err)
	assert.False(t, evals[0].Notified)

	notifier.err = nil
	evals, err = svc.Check(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, evals[0].Notified)
}

func TestCheckNoAlerts(t *testing.T) {
	svc := New(Options{}, nil, staticAlerts{}, &fakePrices{}, nil, nil, zerolog.Nop())
	evals, err := svc.Check(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, evals)
}

func TestTriggeredWithoutPrices(t *testing.T) {
	assert.False(t, Triggered(alert("a", 1), series.PriceRecord{}, false))
}

func TestPruneLedger(t *testing.T) {
	ledger := map[string]string{"keep": "2024-06-01", "gone": "2024-05-01"}
	out := pruneLedger(ledger, []alerts.UserAlert{{ID: "keep"}})
	assert.Equal(t, map[string]string{"keep": "2024-06-01"}, out)
}

func TestMalformedLedgerStartsEmpty(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(context.Background(), DefaultLedgerKey, "{broken"))
	prices := &fakePrices{byPair: map[string][]series.PriceRecord{"Bread/Moscow": {price("2024-06-01", 100)}}}
	notifier := &recordingNotifier{}
	svc := New(Options{}, nil, staticAlerts{alert("a1", 90)}, prices, notifier, kv, zerolog.Nop())

	_, err := svc.Check(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, notifier.sent, 1)
}

func TestRunWithoutScheduler(t *testing.T) {
	svc := New(Options{}, nil, staticAlerts{}, &fakePrices{}, nil, nil, zerolog.Nop())
	assert.Error(t, svc.Run(context.Background()))
	assert.NoError(t, svc.ProcessTick(context.Background(), time.Now()))
}
