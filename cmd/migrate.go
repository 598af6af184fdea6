package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadDeps(cmd)
		if err != nil {
			return err
		}
		st, err := rt.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		rt.log.Info().Str("dialect", st.Dialect()).Msg("schema is up to date")
		return nil
	},
}
