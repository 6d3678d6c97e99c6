package cli

import (
	"fmt"

	"CareCompanion/pkg/backup"
	"CareCompanion/pkg/config"
	"CareCompanion/pkg/logger"

	"github.com/spf13/cobra"
)

var keepFlag int

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the interaction database once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GlobalConfig
		b := backup.New(cfg.DBDriver, cfg.DSN, cfg.BackupPath, keepFlag, logger.Lg)
		dst, err := b.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dst)
		return nil
	},
}

func init() {
	backupCmd.Flags().IntVar(&keepFlag, "keep", 7, "Number of backups to keep")
}
