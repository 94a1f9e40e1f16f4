package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"coop-ledger/internal/infrastructure/db"
)

func migrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the schema and seed the saving categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openDB(); err != nil {
				return err
			}
			defer a.close()
			if err := db.Migrate(cmd.Context(), a.db); err != nil {
				return err
			}
			logrus.Info("migrate: done")
			return nil
		},
	}
}
