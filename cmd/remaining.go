package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var remainingCmd = &cobra.Command{
	Use:   "remaining",
	Short: "Count questions a device can still receive for a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, _ := cmd.Flags().GetString("device")
		date, _ := cmd.Flags().GetString("date")

		rt, err := loadDeps(cmd)
		if err != nil {
			return err
		}
		coord, closeFn, err := rt.coordinator(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		n, err := coord.Remaining(cmd.Context(), date, device)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

func init() {
	remainingCmd.Flags().String("device", "", "Device id")
	remainingCmd.Flags().String("date", today(), "Question date (YYYY-MM-DD)")
	_ = remainingCmd.MarkFlagRequired("device")
}
