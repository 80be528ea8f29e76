package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/fetcher"
	"pricewatch/internal/series"
)

// ErrSuperseded is returned when a newer Analyze call started before this one finished.
var ErrSuperseded = errors.New("analysis superseded by a newer request")

// Analysis is the merged view of one selection.
type Analysis struct {
	Selection  Selection
	Generation uint64
	Prices     []series.PriceRecord
	Anomalies  []series.AnomalyPoint
	Series     []series.AnnotatedPriceRecord
	Summary    series.Summary
	HasSummary bool
	// Orphans are anomaly points with no matching price date.
	Orphans    []series.AnomalyPoint
	PriceErr   error
	AnomalyErr error
	FetchedAt  time.Time
}

// Degraded reports whether either collaborator failed.
func (a *Analysis) Degraded() bool {
	return a.PriceErr != nil || a.AnomalyErr != nil
}

// Session holds the analyst's working state in place of process-wide globals.
type Session struct {
	prices    fetcher.PriceSource
	anomalies fetcher.AnomalySource
	logger    zerolog.Logger
	now       func() time.Time

	mu         sync.Mutex
	generation uint64
	current    *Analysis
}

// New constructs a Session over the two collaborators.
func New(prices fetcher.PriceSource, anomalies fetcher.AnomalySource, logger zerolog.Logger) *Session {
	return &Session{
		prices:    prices,
		anomalies: anomalies,
		logger:    logger.With().Str("component", "session").Logger(),
		now:       time.Now,
	}
}

// Current returns the latest applied analysis, or nil.
func (s *Session) Current() *Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Analyze fetches prices and anomalies concurrently, merges them, and applies the
// result unless a newer Analyze call has started in the meantime.
func (s *Session) Analyze(ctx context.Context, sel Selection) (*Analysis, error) {
	if err := sel.Normalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	log := s.logger.With().
		Uint64("generation", gen).
		Str("commodity", sel.Commodity).
		Str("region", sel.Region).
		Int("window", sel.Window).
		Logger()

	var (
		wg        sync.WaitGroup
		prices    []series.PriceRecord
		anomalies []series.AnomalyPoint
		priceErr  error
		anomErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		prices, priceErr = s.prices.FetchPrices(ctx, sel.Commodity, sel.Region, sel.Window)
	}()
	go func() {
		defer wg.Done()
		anomalies, anomErr = s.anomalies.FetchAnomalies(ctx, sel.Commodity, sel.Region, sel.Window, sel.Z())
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if priceErr != nil {
		log.Error().Err(priceErr).Msg("price fetch failed; showing empty series")
		prices = nil
	}
	if anomErr != nil {
		log.Warn().Err(anomErr).Msg("anomaly fetch failed; treating series as non-anomalous")
		anomalies = nil
	}

	analysis := &Analysis{
		Selection:  sel,
		Generation: gen,
		Prices:     prices,
		Anomalies:  anomalies,
		Series:     series.Merge(prices, anomalies),
		Orphans:    series.OrphanAnomalies(prices, anomalies),
		PriceErr:   priceErr,
		AnomalyErr: anomErr,
		FetchedAt:  s.now(),
	}
	analysis.Summary, analysis.HasSummary = series.Summarize(prices)

	if len(analysis.Orphans) > 0 {
		log.Warn().Int("orphans", len(analysis.Orphans)).Msg("anomaly points without matching price dates")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		log.Debug().Uint64("latest", s.generation).Msg("discarding stale analysis")
		return nil, ErrSuperseded
	}
	s.current = analysis

	log.Info().
		Int("records", len(analysis.Series)).
		Int("anomalies", series.CountAnomalies(analysis.Series)).
		Msg("analysis complete")
	return analysis, nil
}
