package cli

import (
	"CareCompanion/internal/store"
	"CareCompanion/pkg/config"
	"CareCompanion/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GlobalConfig
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		if err := store.New(db).Migrate(); err != nil {
			return err
		}
		logger.Info("migration complete", zap.String("driver", cfg.DBDriver))
		return nil
	},
}
