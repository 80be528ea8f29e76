package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pricewatch/internal/app"
)

var (
	exportSel   selectionFlags
	exportDir   string
	exportChart bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the analysed series as CSV and optionally a PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		opts := app.ExportOptions{
			Selection: a.SelectionFor(exportSel.commodity, exportSel.region, exportSel.window, exportSel.z),
			Dir:       exportDir,
			Chart:     exportChart,
		}

		res, err := a.Export(cmd.Context(), opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "wrote %s (%d rows)\n", res.CSVPath, res.Rows)
		if res.PNGPath != "" {
			fmt.Fprintf(out, "wrote %s\n", res.PNGPath)
		}
		return nil
	},
}

func init() {
	exportSel.register(exportCmd)
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Output directory (defaults to config)")
	exportCmd.Flags().BoolVar(&exportChart, "png", false, "Also render a PNG chart next to the CSV")
}
