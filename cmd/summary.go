package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show questions and delivered devices per recent date",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		rt, err := loadDeps(cmd)
		if err != nil {
			return err
		}
		st, err := rt.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.RecentSummary(cmd.Context(), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(out, "No questions stored yet.")
			return nil
		}
		fmt.Fprintf(out, "%-10s  %9s  %7s\n", "Date", "Questions", "Devices")
		fmt.Fprintln(out, strings.Repeat("─", 30))
		for _, r := range rows {
			fmt.Fprintf(out, "%-10s  %9d  %7d\n", r.Date, r.QuestionCount, r.DeliveredDeviceCount)
		}
		return nil
	},
}

func init() {
	summaryCmd.Flags().Int("limit", 7, "Number of dates to show")
}
