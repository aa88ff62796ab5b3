package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lottrace/internal/store"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Run database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				health, err := st.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Path", health.Path},
					{"Schema version", fmt.Sprintf("%d", health.SchemaVersion)},
					{"Journal mode", health.JournalMode},
					{"Foreign keys", yesNo(health.ForeignKeys)},
					{"Lots", fmt.Sprintf("%d", health.LotCount)},
					{"Carry-overs", fmt.Sprintf("%d", health.CarryOverCount)},
					{"Sequence counters", fmt.Sprintf("%d", health.CounterCount)},
					{"Integrity", health.IntegrityResult},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Result"}, rows, nil))
				return nil
			})
		},
	})

	return dbCmd
}
