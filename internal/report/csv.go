package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"pricewatch/internal/series"
)

// ContentTypeCSV is the media type of exported reports.
const ContentTypeCSV = "text/csv"

var header = []string{"Date", "Region", "Commodity", "Price", "Unit", "Is Anomaly", "Z-Score"}

// EmptyInputError is returned when an export is attempted without price data.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "no data to export: run an analysis first"
}

// Artifact is a rendered export ready to be handed to the user.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
	Rows        int
}

// Export renders prices annotated with anomalies as CSV.
// Values containing the delimiter are not escaped beyond what encoding/csv does.
func Export(prices []series.PriceRecord, anomalies []series.AnomalyPoint) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, prices, anomalies); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV streams the report to w.
func WriteCSV(w io.Writer, prices []series.PriceRecord, anomalies []series.AnomalyPoint) error {
	if len(prices) == 0 {
		return &EmptyInputError{}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range series.Merge(prices, anomalies) {
		flag := "No"
		if rec.IsAnomaly {
			flag = "Yes"
		}
		row := []string{
			rec.Date.Key(),
			rec.Region,
			rec.Commodity,
			rec.Price.String(),
			rec.Unit,
			flag,
			series.ZScoreString(rec.ZScore),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// NewArtifact renders the CSV report and names it for download.
func NewArtifact(commodity, region string, at time.Time, prices []series.PriceRecord, anomalies []series.AnomalyPoint) (Artifact, error) {
	data, err := Export(prices, anomalies)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		FileName:    FileName(commodity, region, at),
		ContentType: ContentTypeCSV,
		Data:        data,
		Rows:        len(prices),
	}, nil
}

// FileName follows price-analysis-<commodity>-<region>-<isoDate>.csv.
func FileName(commodity, region string, at time.Time) string {
	return fmt.Sprintf("price-analysis-%s-%s-%s.csv", sanitize(commodity), sanitize(region), at.UTC().Format(series.DateLayout))
}

func sanitize(v string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "\n", " ", "\r", " ").Replace(v)
}
