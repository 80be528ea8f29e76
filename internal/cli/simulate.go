package cli

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var simulatePrice float64

var simulateCmd = &cobra.Command{
	Use:   "simulate <id>",
	Short: "Send a test notification for an alert at the given price",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 {
			return errors.New("--price must be greater than 0")
		}

		if err := getApp().SimulateAlert(cmd.Context(), args[0], decimal.NewFromFloat(simulatePrice)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "notification sent for alert %s\n", args[0])
		return nil
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Observed price to simulate")
}
