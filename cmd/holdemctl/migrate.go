package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/weedbox/holdemtable/config"
	"go.uber.org/zap"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the ledger and table store schema to postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn := a.cfg.Ledger.DSN
			if dsn == "" {
				return config.ErrMissingDSN
			}

			db, err := openDB(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrate(cmd.Context(), db); err != nil {
				a.logger.Error("migrate", zap.Error(err))
				return err
			}

			pterm.Success.Println("schema up to date")
			return nil
		},
	}
}
