package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"pricewatch/internal/alerts"
	"pricewatch/internal/service"
)

// ListAlerts prints the persisted alerts in creation order.
func (a *App) ListAlerts(ctx context.Context, w io.Writer) ([]alerts.UserAlert, error) {
	kv, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	list := a.alertStore(kv).Load(ctx)
	if len(list) == 0 {
		fmt.Fprintln(w, "no alerts configured")
		return list, nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tCommodity\tRegion\tThreshold\tCreated")
	for _, alert := range list {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", alert.ID, alert.Commodity, alert.Region, alert.Threshold.StringFixed(2), alert.CreatedAt)
	}
	writer.Flush()
	return list, nil
}

// CreateAlert validates raw input and stores a new alert.
// A write failure keeps the alert for this process only and is reported as a notice.
func (a *App) CreateAlert(ctx context.Context, w io.Writer, opts AlertCreateOptions) (alerts.CreateResult, error) {
	threshold, err := alerts.ParseThreshold(opts.Threshold)
	if err != nil {
		return alerts.CreateResult{}, err
	}

	kv, closeStore, err := a.openStore(ctx)
	if err != nil {
		return alerts.CreateResult{}, err
	}
	defer closeStore()

	store := a.alertStore(kv)
	store.Load(ctx)

	res, err := store.Create(ctx, opts.Commodity, opts.Region, threshold)
	if err != nil {
		return res, err
	}

	fmt.Fprintln(w, res.Message())
	if res.PersistErr != nil {
		fmt.Fprintf(w, "notice: alert could not be saved and will be lost on exit: %s\n", res.PersistErr)
	}
	return res, nil
}

// DeleteAlert removes an alert by id. Unknown ids are reported but are not an error.
func (a *App) DeleteAlert(ctx context.Context, w io.Writer, id string) (alerts.DeleteResult, error) {
	kv, closeStore, err := a.openStore(ctx)
	if err != nil {
		return alerts.DeleteResult{}, err
	}
	defer closeStore()

	store := a.alertStore(kv)
	store.Load(ctx)

	res := store.Delete(ctx, id)
	if res.Removed {
		fmt.Fprintf(w, "Alert %s deleted\n", id)
	} else {
		fmt.Fprintf(w, "no alert with id %s\n", id)
	}
	if res.PersistErr != nil {
		fmt.Fprintf(w, "notice: deletion could not be saved: %s\n", res.PersistErr)
	}
	return res, nil
}

// CheckAlerts evaluates every alert against the latest price and optionally notifies.
func (a *App) CheckAlerts(ctx context.Context, w io.Writer, notify bool) ([]service.Evaluation, error) {
	kv, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	svc := service.New(service.Options{
		Window:    a.Config.Analysis.Window,
		LedgerKey: a.Config.Watch.LedgerKey,
	}, nil, a.alertStore(kv), a.newClient(), a.newNotifier(), kv, a.Logger)

	evals, err := svc.Check(ctx, notify)
	if err != nil {
		return evals, err
	}
	if len(evals) == 0 {
		fmt.Fprintln(w, "no alerts configured")
		return evals, nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tCommodity\tRegion\tThreshold\tLatest\tDate\tStatus")
	for _, e := range evals {
		latest, date := "-", "-"
		if e.HasLatest {
			latest = e.Latest.Price.StringFixed(2)
			date = e.Latest.Date.Key()
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Alert.ID, e.Alert.Commodity, e.Alert.Region, e.Alert.Threshold.StringFixed(2), latest, date, evaluationStatus(e))
	}
	writer.Flush()
	return evals, nil
}

func evaluationStatus(e service.Evaluation) string {
	switch {
	case e.Err != nil && !e.Triggered:
		return "error: " + sanitizeInline(e.Err.Error())
	case e.Err != nil:
		return "triggered (notify failed)"
	case e.Notified:
		return "triggered (notified)"
	case e.Triggered:
		return "triggered"
	case !e.HasLatest:
		return "no data"
	default:
		return "ok"
	}
}
