package main

import (
	"strings"

	"github.com/spf13/cobra"

	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/logger"
	"tiktok-crawler-go/internal/store"
)

var exportFlags struct {
	owner string
	out   string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored light and heavy records to an xlsx workbook.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := store.Open(cmd.Context(), config.AppConfig)
		if err != nil {
			return exitError{code: 1, err: err}
		}
		defer repo.Close()

		owner := strings.TrimPrefix(strings.TrimSpace(exportFlags.owner), "@")
		sum, err := store.ExportXLSX(cmd.Context(), repo, owner, exportFlags.out)
		if err != nil {
			return exitError{code: 1, err: err}
		}
		logger.Info("records exported", "path", sum.Path, "owner", owner, "light", sum.Light, "heavy", sum.Heavy)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.owner, "owner", "", "only export this target account")
	exportCmd.Flags().StringVarP(&exportFlags.out, "out", "o", "data/videos.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
