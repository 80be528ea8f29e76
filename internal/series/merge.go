package series

import "github.com/shopspring/decimal"

// Merge annotates prices with the anomaly points sharing their date.
// Output order and length always match prices.
func Merge(prices []PriceRecord, anomalies []AnomalyPoint) []AnnotatedPriceRecord {
	byDate := indexAnomalies(anomalies)

	out := make([]AnnotatedPriceRecord, len(prices))
	for i, p := range prices {
		out[i] = AnnotatedPriceRecord{PriceRecord: p}
		if a, ok := byDate[p.Date.Key()]; ok {
			z := a.ZScore
			out[i].IsAnomaly = true
			out[i].ZScore = &z
		}
	}
	return out
}

// OrphanAnomalies returns anomaly points whose date has no matching price record.
func OrphanAnomalies(prices []PriceRecord, anomalies []AnomalyPoint) []AnomalyPoint {
	if len(anomalies) == 0 {
		return nil
	}
	dates := make(map[string]struct{}, len(prices))
	for _, p := range prices {
		dates[p.Date.Key()] = struct{}{}
	}

	var orphans []AnomalyPoint
	for _, a := range anomalies {
		if _, ok := dates[a.Date.Key()]; !ok {
			orphans = append(orphans, a)
		}
	}
	return orphans
}

// CountAnomalies reports how many annotated records are flagged.
func CountAnomalies(records []AnnotatedPriceRecord) int {
	n := 0
	for _, r := range records {
		if r.IsAnomaly {
			n++
		}
	}
	return n
}

// first point wins when the engine reports a date twice
func indexAnomalies(anomalies []AnomalyPoint) map[string]AnomalyPoint {
	byDate := make(map[string]AnomalyPoint, len(anomalies))
	for _, a := range anomalies {
		key := a.Date.Key()
		if _, seen := byDate[key]; seen {
			continue
		}
		byDate[key] = a
	}
	return byDate
}

// ZScoreString formats an optional z-score to two places, empty when absent.
func ZScoreString(z *decimal.Decimal) string {
	if z == nil {
		return ""
	}
	return z.StringFixed(2)
}
