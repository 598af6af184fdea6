package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var reserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Hand a device its next questions for a date (JSON)",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, _ := cmd.Flags().GetString("device")
		date, _ := cmd.Flags().GetString("date")
		count, _ := cmd.Flags().GetInt("count")
		forceReset, _ := cmd.Flags().GetBool("force-reset")

		rt, err := loadDeps(cmd)
		if err != nil {
			return err
		}
		coord, closeFn, err := rt.coordinator(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := coord.Reserve(cmd.Context(), device, date, count, forceReset)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	reserveCmd.Flags().String("device", "", "Device id")
	reserveCmd.Flags().String("date", today(), "Question date (YYYY-MM-DD)")
	reserveCmd.Flags().Int("count", 5, "Maximum questions to hand out")
	reserveCmd.Flags().Bool("force-reset", false, "Clear the device's earlier deliveries for the date first")
	_ = reserveCmd.MarkFlagRequired("device")
}
