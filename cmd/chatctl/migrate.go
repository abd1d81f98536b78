package main

import (
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/chatcore/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the chat tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gdb, log, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close(gdb) }()

		if err := db.Migrate(cmd.Context(), gdb); err != nil {
			return err
		}
		log.Info("migration complete", "driver", cfg.DBDriver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
