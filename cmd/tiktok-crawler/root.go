package main

import (
	"github.com/spf13/cobra"

	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/logger"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:           "tiktok-crawler",
	Short:         "Collects public video metadata from TikTok accounts.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadConfig(configDir); err != nil {
			return exitError{code: 1, err: err}
		}
		logger.InitFromConfig()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory holding config.yaml")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
