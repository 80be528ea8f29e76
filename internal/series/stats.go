package series

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Severity is a coarse position of a price inside the observed range.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var (
	criticalRatio = decimal.NewFromFloat(0.75)
	highRatio     = decimal.NewFromFloat(0.5)
	mediumRatio   = decimal.NewFromFloat(0.25)
)

var severityColors = map[Severity]string{
	SeverityNormal:   "#22c55e",
	SeverityMedium:   "#eab308",
	SeverityHigh:     "#f97316",
	SeverityCritical: "#ef4444",
}

// Color returns the display colour of the bucket.
func (s Severity) Color() string {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return severityColors[SeverityNormal]
}

// ClassifySeverity buckets price by (price-min)/(max-min).
// A degenerate range (min == max) is always normal.
func ClassifySeverity(price, min, max decimal.Decimal) Severity {
	span := max.Sub(min)
	if span.Sign() <= 0 {
		return SeverityNormal
	}

	ratio := price.Sub(min).Div(span)
	switch {
	case ratio.GreaterThan(criticalRatio):
		return SeverityCritical
	case ratio.GreaterThan(highRatio):
		return SeverityHigh
	case ratio.GreaterThan(mediumRatio):
		return SeverityMedium
	default:
		return SeverityNormal
	}
}

// Summary aggregates a non-empty price series.
type Summary struct {
	Min   decimal.Decimal
	Max   decimal.Decimal
	Mean  decimal.Decimal
	Count int
}

// Summarize computes min, max, and mean. ok is false for an empty series.
func Summarize(prices []PriceRecord) (summary Summary, ok bool) {
	if len(prices) == 0 {
		return Summary{}, false
	}

	min, max := prices[0].Price, prices[0].Price
	sum := decimal.Zero
	for _, p := range prices {
		if p.Price.LessThan(min) {
			min = p.Price
		}
		if p.Price.GreaterThan(max) {
			max = p.Price
		}
		sum = sum.Add(p.Price)
	}

	return Summary{
		Min:   min,
		Max:   max,
		Mean:  sum.Div(decimal.NewFromInt(int64(len(prices)))),
		Count: len(prices),
	}, true
}

// MeanDisplay rounds the mean half-up to two places.
func (s Summary) MeanDisplay() string {
	return s.Mean.StringFixed(2)
}

// Severity classifies price within this summary's range.
func (s Summary) Severity(price decimal.Decimal) Severity {
	return ClassifySeverity(price, s.Min, s.Max)
}

// AboveAverage reports whether price is strictly above the displayed mean.
func (s Summary) AboveAverage(price decimal.Decimal) bool {
	return price.GreaterThan(s.Mean.Round(2))
}

// LatestDate returns the newest date in the series.
func LatestDate(prices []PriceRecord) (Date, bool) {
	rec, ok := Latest(prices)
	return rec.Date, ok
}

// Latest returns the record with the newest date. On equal dates the later record wins.
func Latest(prices []PriceRecord) (PriceRecord, bool) {
	if len(prices) == 0 {
		return PriceRecord{}, false
	}
	latest := prices[0]
	for _, p := range prices[1:] {
		if !p.Date.Before(latest.Date) {
			latest = p
		}
	}
	return latest, true
}

// LatestByRegion returns the most recent record for each region, ordered by region name.
func LatestByRegion(prices []PriceRecord) []PriceRecord {
	latest := make(map[string]PriceRecord)
	for _, p := range prices {
		cur, ok := latest[p.Region]
		if !ok || cur.Date.Before(p.Date) {
			latest[p.Region] = p
		}
	}

	out := make([]PriceRecord, 0, len(latest))
	for _, p := range latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}
