package main

import (
	"github.com/spf13/cobra"

	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/logger"
	"tiktok-crawler-go/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed <seed.yaml>",
	Short: "Upsert crawl identities and their target accounts from a YAML file.",
	Example: `  tiktok-crawler seed seed.yaml

  # seed.yaml
  identities:
    - handle: crawler1@example.com
      secret: ********
      targets:
        - handle: alice
          priority: 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := store.LoadSeedFile(args[0])
		if err != nil {
			return exitError{code: 1, err: err}
		}
		repo, err := store.Open(cmd.Context(), config.AppConfig)
		if err != nil {
			return exitError{code: 1, err: err}
		}
		defer repo.Close()

		sum, err := store.ApplySeed(cmd.Context(), repo, seed)
		if err != nil {
			logger.Error("seed failed", "err", err, "identities", sum.Identities, "targets", sum.Targets)
			return exitError{code: 1, err: err}
		}
		logger.Info("seed applied", "identities", sum.Identities, "targets", sum.Targets)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
