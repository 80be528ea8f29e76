package cli

import (
	"github.com/spf13/cobra"

	"pricewatch/internal/app"
)

var (
	createCommodity string
	createRegion    string
	createThreshold string
	checkNotify     bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Manage personal price alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := getApp().ListAlerts(cmd.Context(), cmd.OutOrStdout())
		return err
	},
}

var alertsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an alert for a commodity in a region",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := getApp().CreateAlert(cmd.Context(), cmd.OutOrStdout(), app.AlertCreateOptions{
			Commodity: createCommodity,
			Region:    createRegion,
			Threshold: createThreshold,
		})
		return err
	},
}

var alertsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an alert by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := getApp().DeleteAlert(cmd.Context(), cmd.OutOrStdout(), args[0])
		return err
	},
}

var alertsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare every alert with the latest observed price",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := getApp().CheckAlerts(cmd.Context(), cmd.OutOrStdout(), checkNotify)
		return err
	},
}

func init() {
	alertsCreateCmd.Flags().StringVarP(&createCommodity, "commodity", "c", "", "Commodity name")
	alertsCreateCmd.Flags().StringVarP(&createRegion, "region", "r", "", "Region name")
	alertsCreateCmd.Flags().StringVarP(&createThreshold, "threshold", "t", "", "Price threshold (positive number)")
	_ = alertsCreateCmd.MarkFlagRequired("commodity")
	_ = alertsCreateCmd.MarkFlagRequired("region")
	_ = alertsCreateCmd.MarkFlagRequired("threshold")

	alertsCheckCmd.Flags().BoolVar(&checkNotify, "notify", false, "Dispatch notifications for newly triggered alerts")

	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsCreateCmd)
	alertsCmd.AddCommand(alertsDeleteCmd)
	alertsCmd.AddCommand(alertsCheckCmd)
	alertsCmd.AddCommand(simulateCmd)
}
