package cli

import (
	"github.com/spf13/cobra"

	"pricewatch/internal/app"
)

// selectionFlags are shared by analyze and export.
type selectionFlags struct {
	commodity string
	region    string
	window    int
	z         float64
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.commodity, "commodity", "c", "", "Commodity name")
	cmd.Flags().StringVarP(&f.region, "region", "r", "", "Region name")
	cmd.Flags().IntVar(&f.window, "window", 0, "Rolling window in months, 3-24 (defaults to config)")
	cmd.Flags().Float64Var(&f.z, "z", 0, "Anomaly z-score threshold, 1-5 (defaults to config)")
	_ = cmd.MarkFlagRequired("commodity")
	_ = cmd.MarkFlagRequired("region")
}

var (
	analyzeSel       selectionFlags
	analyzeDashboard bool
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "List available commodities and regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Metadata(cmd.Context(), cmd.OutOrStdout())
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show the price series with anomalies and summary statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		opts := app.AnalyzeOptions{
			Selection: a.SelectionFor(analyzeSel.commodity, analyzeSel.region, analyzeSel.window, analyzeSel.z),
			Dashboard: analyzeDashboard,
		}
		_, err := a.Analyze(cmd.Context(), cmd.OutOrStdout(), opts)
		return err
	},
}

func init() {
	analyzeSel.register(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeDashboard, "dashboard", false, "Include summary cards and the latest price in every region")
}
