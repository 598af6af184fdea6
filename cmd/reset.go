package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget which questions a device has received for a date",
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

		n, err := coord.Reset(cmd.Context(), date, device)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d deliveries for %s on %s.\n", n, device, date)
		return nil
	},
}

func init() {
	resetCmd.Flags().String("device", "", "Device id")
	resetCmd.Flags().String("date", today(), "Question date (YYYY-MM-DD)")
	_ = resetCmd.MarkFlagRequired("device")
}
