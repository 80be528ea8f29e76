package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pricewatch/internal/report"
	"pricewatch/internal/series"
)

// ExportResult lists the files written by Export.
type ExportResult struct {
	CSVPath string
	PNGPath string
	Rows    int
}

// Export analyses the selection and writes the CSV report, plus a PNG chart when requested.
func (a *App) Export(ctx context.Context, opts ExportOptions) (ExportResult, error) {
	client := a.newClient()
	analysis, err := a.newSession(client).Analyze(ctx, opts.Selection)
	if err != nil {
		return ExportResult{}, err
	}

	sel := analysis.Selection
	artifact, err := report.NewArtifact(sel.Commodity, sel.Region, a.Now(), analysis.Prices, analysis.Anomalies)
	if err != nil {
		return ExportResult{}, err
	}

	dir := a.Config.ResolveExportDir(opts.Dir)
	csvPath := filepath.Join(dir, artifact.FileName)
	if err := writeFile(csvPath, artifact.Data); err != nil {
		return ExportResult{}, err
	}
	result := ExportResult{CSVPath: csvPath, Rows: artifact.Rows}
	a.Logger.Info().Str("path", csvPath).Int("rows", artifact.Rows).Msg("report exported")

	if opts.Chart || a.Config.Export.Chart {
		pngPath := strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".png"
		if err := writeChart(pngPath, analysis.Prices, analysis.Anomalies); err != nil {
			if !errors.Is(err, report.ErrTooFewPoints) {
				return result, err
			}
			a.Logger.Warn().Err(err).Msg("chart skipped")
		} else {
			result.PNGPath = pngPath
		}
	}

	return result, nil
}

func writeChart(path string, prices []series.PriceRecord, anomalies []series.AnomalyPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := report.WriteChart(file, prices, anomalies); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}

func writeFile(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
