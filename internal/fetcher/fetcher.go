package fetcher

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pricewatch/internal/series"
)

// MetadataSource lists the known commodity and region names.
type MetadataSource interface {
	Commodities(ctx context.Context) ([]string, error)
	Regions(ctx context.Context) ([]string, error)
}

// PriceSource returns the ordered price history for a window of months.
type PriceSource interface {
	FetchPrices(ctx context.Context, commodity, region string, window int) ([]series.PriceRecord, error)
}

// AnomalySource returns pre-scored anomaly points for the same window.
type AnomalySource interface {
	FetchAnomalies(ctx context.Context, commodity, region string, window int, zThreshold decimal.Decimal) ([]series.AnomalyPoint, error)
}

// CollaboratorError wraps a failure of an external source.
type CollaboratorError struct {
	Source string
	Err    error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s source: %v", e.Source, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
