package main

import (
	"fmt"

	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := openDatabase(config.Get().Database); err != nil {
				return err
			}
			defer database.CloseDb()
			logger.Log.Infoln("Database version", database.DBVersion)
			return nil
		},
	}
}

func newBackupCmd() *cobra.Command {
	var dir string
	var keep int
	cmd := &cobra.Command{
		Use:         "backup",
		Short:       "Write a backup of the database and remove old ones",
		Annotations: map[string]string{annotationOutput: "text"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get().Database
			if dir == "" {
				dir = cfg.BackupDir
			}
			if keep == 0 {
				keep = cfg.MaxBackups
			}
			if err := openDatabase(cfg); err != nil {
				return err
			}
			defer database.CloseDb()
			file, err := database.Backup(dir, keep)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), file)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "backup directory (defaults to database.backupdir)")
	cmd.Flags().IntVar(&keep, "keep", 0, "backups to keep (defaults to database.maxbackups)")
	return cmd
}
