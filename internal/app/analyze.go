package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"pricewatch/internal/fetcher"
	"pricewatch/internal/series"
	"pricewatch/internal/session"
)

const dashboardDateLayout = "Jan 2006"

// Metadata prints the available commodities and regions.
func (a *App) Metadata(ctx context.Context, w io.Writer) error {
	client := a.newClient()

	commodities, err := client.Commodities(ctx)
	if err != nil {
		return err
	}
	regions, err := client.Regions(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Commodities (%d):\n", len(commodities))
	for _, c := range commodities {
		fmt.Fprintf(w, "  %s\n", c)
	}
	fmt.Fprintf(w, "Regions (%d):\n", len(regions))
	for _, r := range regions {
		fmt.Fprintf(w, "  %s\n", r)
	}
	return nil
}

// Analyze runs one analysis and prints the annotated series with its summary.
func (a *App) Analyze(ctx context.Context, w io.Writer, opts AnalyzeOptions) (*session.Analysis, error) {
	client := a.newClient()
	analysis, err := a.newSession(client).Analyze(ctx, opts.Selection)
	if err != nil {
		return nil, err
	}

	if opts.Dashboard {
		a.printDashboard(ctx, w, client, analysis)
	}
	printAnalysis(w, analysis)
	if opts.Dashboard {
		a.printRegionalLatest(ctx, w, client, analysis.Selection)
	}
	return analysis, nil
}

func printAnalysis(w io.Writer, analysis *session.Analysis) {
	sel := analysis.Selection
	fmt.Fprintf(w, "%s in %s (window %d, z %.1f)\n\n", sel.Commodity, sel.Region, sel.Window, sel.ZThreshold)

	if analysis.PriceErr != nil {
		fmt.Fprintf(w, "warning: price data unavailable: %s\n", sanitizeInline(analysis.PriceErr.Error()))
	}
	if analysis.AnomalyErr != nil {
		fmt.Fprintf(w, "warning: anomaly detection unavailable: %s\n", sanitizeInline(analysis.AnomalyErr.Error()))
	}
	if len(analysis.Series) == 0 {
		fmt.Fprintln(w, "no price data for this selection")
		return
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tPrice\tUnit\tvs Avg\tSeverity\tAnomaly\tZ-Score")
	for _, rec := range analysis.Series {
		vsAvg := "below"
		if analysis.Summary.AboveAverage(rec.Price) {
			vsAvg = "above"
		}
		anomaly := ""
		if rec.IsAnomaly {
			anomaly = "yes"
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Date.Key(),
			rec.Price.StringFixed(2),
			rec.Unit,
			vsAvg,
			analysis.Summary.Severity(rec.Price),
			anomaly,
			series.ZScoreString(rec.ZScore),
		)
	}
	writer.Flush()

	s := analysis.Summary
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d  Anomalies: %d\n", len(analysis.Series), series.CountAnomalies(analysis.Series))
	fmt.Fprintf(w, "Min: %s  Max: %s  Mean: %s\n", s.Min.StringFixed(2), s.Max.StringFixed(2), s.MeanDisplay())

	if len(analysis.Orphans) > 0 {
		dates := make([]string, 0, len(analysis.Orphans))
		for _, o := range analysis.Orphans {
			dates = append(dates, o.Date.Key())
		}
		fmt.Fprintf(w, "warning: %d anomaly point(s) have no matching price date: %s\n", len(dates), strings.Join(dates, ", "))
	}
}

// printDashboard shows the summary cards. Each card degrades to "-" on failure.
func (a *App) printDashboard(ctx context.Context, w io.Writer, client fetcher.MetadataSource, analysis *session.Analysis) {
	latest := "-"
	if d, ok := series.LatestDate(analysis.Prices); ok {
		latest = d.Time().Format(dashboardDateLayout)
	}

	commodities, regions := "-", "-"
	if items, err := client.Commodities(ctx); err == nil {
		commodities = fmt.Sprint(len(items))
	} else {
		a.Logger.Warn().Err(err).Msg("dashboard: commodities unavailable")
	}
	if items, err := client.Regions(ctx); err == nil {
		regions = fmt.Sprint(len(items))
	} else {
		a.Logger.Warn().Err(err).Msg("dashboard: regions unavailable")
	}

	active := "-"
	if kv, closeStore, err := a.openStore(ctx); err == nil {
		active = fmt.Sprint(len(a.alertStore(kv).Load(ctx)))
		closeStore()
	} else {
		a.Logger.Warn().Err(err).Msg("dashboard: alert storage unavailable")
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Latest Data\tCommodities\tRegions\tActive Alerts")
	fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", latest, commodities, regions, active)
	writer.Flush()
	fmt.Fprintln(w)
}

type regionalClient interface {
	fetcher.MetadataSource
	fetcher.PriceSource
}

// printRegionalLatest lists the newest price of the commodity in every region,
// coloured by its position in the cross-region range.
func (a *App) printRegionalLatest(ctx context.Context, w io.Writer, client regionalClient, sel session.Selection) {
	regions, err := client.Regions(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("regional view: regions unavailable")
		return
	}

	var all []series.PriceRecord
	for _, region := range regions {
		records, err := client.FetchPrices(ctx, sel.Commodity, region, sel.Window)
		if err != nil {
			a.Logger.Warn().Err(err).Str("region", region).Msg("regional view: prices unavailable")
			continue
		}
		all = append(all, records...)
	}

	latest := series.LatestByRegion(all)
	summary, ok := series.Summarize(latest)
	if !ok {
		return
	}

	fmt.Fprintf(w, "\nLatest %s price by region\n", sel.Commodity)
	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Region\tDate\tPrice\tSeverity\tColor")
	for _, rec := range latest {
		sev := summary.Severity(rec.Price)
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", rec.Region, rec.Date.Key(), rec.Price.StringFixed(2), sev, sev.Color())
	}
	writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
