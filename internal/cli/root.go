// Package cli implements the carecompanion commands.
package cli

import (
	"fmt"
	"os"

	"CareCompanion/pkg/config"
	"CareCompanion/pkg/logger"

	"github.com/spf13/cobra"
)

var envFlag string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "carecompanion",
	Short: "Voice companion backend with caregiver safety escalation",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFlag != "" {
			if err := os.Setenv("APP_ENV", envFlag); err != nil {
				return err
			}
		}
		if err := config.Load(); err != nil {
			return err
		}
		if _, err := logger.Init(config.GlobalConfig.Log, config.GlobalConfig.Mode, "carecompanion"); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "", "Environment name, selects .env.<env> (default: $APP_ENV or development)")
	RootCmd.AddCommand(serveCmd, migrateCmd, backupCmd)
}
