package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gather/pkg/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		pool, err := db.NewConnection(ctx, cfg.DB, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := db.Migrate(ctx, pool, log)
		if err != nil {
			return err
		}
		log.Info("Migrations applied", zap.Int("count", n))
		return nil
	},
}
