package main

import (
	"fmt"
	"os"

	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/spf13/cobra"
)

// @title rampart API
// @BasePath /api

const annotationOutput = "output"

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rampart",
		Short:         "Supplier compliance tracking for BRSR questionnaires",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.LoadCfg(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			lc := cfg.General.LoggerConfig()
			// keep stdout clean for commands that print results
			lc.LogToFileOnly = cmd.Annotations[annotationOutput] != ""
			logger.InitLogger(lc)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", config.Configfile, "config file (toml)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newBackupCmd(),
		newVendorsCmd(),
		newLoginCmd(),
		newLogoutCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
