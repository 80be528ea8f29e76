package report

import (
	"errors"
	"io"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"pricewatch/internal/series"
)

// ErrTooFewPoints is returned when a chart would have no drawable range.
var ErrTooFewPoints = errors.New("chart requires at least two price records")

// WriteChart renders the price series as PNG with anomalies overlaid as markers.
func WriteChart(w io.Writer, prices []series.PriceRecord, anomalies []series.AnomalyPoint) error {
	if len(prices) == 0 {
		return &EmptyInputError{}
	}
	if len(prices) < 2 {
		return ErrTooFewPoints
	}

	merged := series.Merge(prices, anomalies)
	x := make([]time.Time, len(merged))
	y := make([]float64, len(merged))
	var ax []time.Time
	var ay []float64
	for i, rec := range merged {
		x[i] = rec.Date.Time()
		y[i] = rec.Price.InexactFloat64()
		if rec.IsAnomaly {
			ax = append(ax, x[i])
			ay = append(ay, y[i])
		}
	}

	summary, _ := series.Summarize(prices)
	name := prices[0].Commodity + " - " + prices[0].Region

	graph := chart.Chart{
		Title:  name,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Price (" + prices[0].Unit + ")",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f")
			},
			Range: yRange(summary),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    name,
				XValues: x,
				YValues: y,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("3b82f6"),
					StrokeWidth: 2,
				},
			},
		},
	}
	if len(ax) > 0 {
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "Anomaly",
			XValues: ax,
			YValues: ay,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    6,
				DotColor:    drawing.ColorFromHex(series.SeverityCritical.Color()[1:]),
			},
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// flat series have no auto range, so pad one unit each side
func yRange(s series.Summary) chart.Range {
	if !s.Min.Equal(s.Max) {
		return nil
	}
	mid := s.Min.InexactFloat64()
	return &chart.ContinuousRange{Min: mid - 1, Max: mid + 1}
}
