package series

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(date string, value float64) PriceRecord {
	return PriceRecord{
		Date:      MustParseDate(date),
		Region:    "Moscow",
		Commodity: "Bread",
		Price:     decimal.NewFromFloat(value),
		Unit:      "RUB/kg",
	}
}

func anomaly(date string, value, z float64) AnomalyPoint {
	return AnomalyPoint{Date: MustParseDate(date), Price: decimal.NewFromFloat(value), ZScore: decimal.NewFromFloat(z)}
}

func TestMerge_Scenario(t *testing.T) {
	prices := []PriceRecord{price("2024-01-01", 50), price("2024-02-01", 80)}
	anomalies := []AnomalyPoint{anomaly("2024-02-01", 80, 2.5)}

	merged := Merge(prices, anomalies)
	require.Len(t, merged, 2)

	assert.False(t, merged[0].IsAnomaly)
	assert.Nil(t, merged[0].ZScore)
	assert.True(t, merged[1].IsAnomaly)
	require.NotNil(t, merged[1].ZScore)
	assert.True(t, merged[1].ZScore.Equal(decimal.NewFromFloat(2.5)))
}

func TestMerge_PreservesOrderAndLength(t *testing.T) {
	prices := []PriceRecord{
		price("2024-03-01", 10),
		price("2024-01-01", 12),
		price("2024-02-01", 14),
		price("2024-04-01", 9),
	}
	anomalies := []AnomalyPoint{
		anomaly("2024-04-01", 9, -2.1),
		anomaly("2024-01-01", 12, 3),
		anomaly("2023-12-01", 40, 4),
	}

	merged := Merge(prices, anomalies)
	require.Len(t, merged, len(prices))

	flagged := map[string]bool{"2024-04-01": true, "2024-01-01": true}
	for i, rec := range merged {
		assert.Equal(t, prices[i].Date.Key(), rec.Date.Key())
		assert.Equal(t, flagged[rec.Date.Key()], rec.IsAnomaly, rec.Date.Key())
	}
	assert.Equal(t, 2, CountAnomalies(merged))
}

func TestMerge_EmptyInputs(t *testing.T) {
	assert.Empty(t, Merge(nil, []AnomalyPoint{anomaly("2024-01-01", 1, 2)}))

	merged := Merge([]PriceRecord{price("2024-01-01", 5)}, nil)
	require.Len(t, merged, 1)
	assert.False(t, merged[0].IsAnomaly)
}

func TestMerge_NormalisesTimestampDates(t *testing.T) {
	var a AnomalyPoint
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-02-01T00:00:00Z","price":80,"z_score":2.5}`), &a))

	merged := Merge([]PriceRecord{price("2024-02-01", 80)}, []AnomalyPoint{a})
	assert.True(t, merged[0].IsAnomaly)
}

func TestOrphanAnomalies(t *testing.T) {
	prices := []PriceRecord{price("2024-01-01", 50)}
	anomalies := []AnomalyPoint{anomaly("2024-01-01", 50, 2), anomaly("2024-05-01", 70, 3)}

	orphans := OrphanAnomalies(prices, anomalies)
	require.Len(t, orphans, 1)
	assert.Equal(t, "2024-05-01", orphans[0].Date.Key())
	assert.Nil(t, OrphanAnomalies(prices, nil))
}

func TestSummarize_Scenario(t *testing.T) {
	summary, ok := Summarize([]PriceRecord{price("2024-01-01", 50), price("2024-02-01", 80)})
	require.True(t, ok)

	assert.True(t, summary.Min.Equal(decimal.NewFromInt(50)))
	assert.True(t, summary.Max.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "65.00", summary.MeanDisplay())
	assert.Equal(t, 2, summary.Count)
}

func TestSummarize_Empty(t *testing.T) {
	summary, ok := Summarize(nil)
	assert.False(t, ok)
	assert.Equal(t, Summary{}, summary)
}

func TestSummarize_MeanRoundsHalfUp(t *testing.T) {
	summary, ok := Summarize([]PriceRecord{price("2024-01-01", 1.005), price("2024-02-01", 1.005)})
	require.True(t, ok)
	assert.Equal(t, "1.01", summary.MeanDisplay())

	summary, ok = Summarize([]PriceRecord{price("2024-01-01", 1), price("2024-02-01", 1), price("2024-03-01", 2)})
	require.True(t, ok)
	assert.Equal(t, "1.33", summary.MeanDisplay())
}

func TestClassifySeverity(t *testing.T) {
	min, max := decimal.NewFromInt(0), decimal.NewFromInt(100)
	tests := []struct {
		price float64
		want  Severity
	}{
		{0, SeverityNormal},
		{25, SeverityNormal},
		{26, SeverityMedium},
		{50, SeverityMedium},
		{51, SeverityHigh},
		{75, SeverityHigh},
		{76, SeverityCritical},
		{100, SeverityCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifySeverity(decimal.NewFromFloat(tt.price), min, max), "price %v", tt.price)
	}
}

func TestClassifySeverity_DegenerateRange(t *testing.T) {
	m := decimal.NewFromInt(42)
	for _, p := range []float64{-10, 0, 42, 1000} {
		assert.Equal(t, SeverityNormal, ClassifySeverity(decimal.NewFromFloat(p), m, m))
	}
}

func TestClassifySeverity_Monotonic(t *testing.T) {
	rank := map[Severity]int{SeverityNormal: 0, SeverityMedium: 1, SeverityHigh: 2, SeverityCritical: 3}
	min, max := decimal.NewFromFloat(37.5), decimal.NewFromFloat(212.25)

	prev := -1
	step := max.Sub(min).Div(decimal.NewFromInt(200))
	for p := min; p.LessThanOrEqual(max); p = p.Add(step) {
		r := rank[ClassifySeverity(p, min, max)]
		assert.GreaterOrEqual(t, r, prev, "price %s", p)
		prev = r
	}
}

func TestSeverityColor(t *testing.T) {
	assert.Equal(t, "#ef4444", SeverityCritical.Color())
	assert.Equal(t, "#22c55e", Severity("bogus").Color())
}

func TestLatestByRegion(t *testing.T) {
	a := price("2024-01-01", 10)
	b := price("2024-03-01", 11)
	c := price("2024-02-01", 20)
	c.Region = "Kazan"

	latest := LatestByRegion([]PriceRecord{b, a, c})
	require.Len(t, latest, 2)
	assert.Equal(t, "Kazan", latest[0].Region)
	assert.Equal(t, "2024-03-01", latest[1].Date.Key())

	d, ok := LatestDate([]PriceRecord{a, b, c})
	require.True(t, ok)
	assert.Equal(t, "2024-03-01", d.Key())
}

func TestLatest(t *testing.T) {
	first := price("2024-03-01", 10)
	second := price("2024-03-01", 12)

	rec, ok := Latest([]PriceRecord{price("2024-01-01", 99), first, second})
	require.True(t, ok)
	assert.True(t, rec.Price.Equal(second.Price), "later record wins on equal dates")

	_, ok = Latest(nil)
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-02-01", "2024-02-01T00:00:00Z", "2024-02-01 00:00:00", " 2024-02-01 "} {
		d, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, "2024-02-01", d.Key())
	}
	_, err := ParseDate("01/02/2024")
	assert.Error(t, err)
}
