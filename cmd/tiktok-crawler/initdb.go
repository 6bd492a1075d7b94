package main

import (
	"github.com/spf13/cobra"

	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/logger"
	"tiktok-crawler-go/internal/store"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create tables or collections for the configured store backend.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig
		repo, err := store.Open(cmd.Context(), cfg)
		if err != nil {
			return exitError{code: 1, err: err}
		}
		defer repo.Close()
		if err := repo.EnsureSchema(cmd.Context()); err != nil {
			return exitError{code: 1, err: err}
		}
		logger.Info("schema ready", "backend", cfg.StoreBackend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
