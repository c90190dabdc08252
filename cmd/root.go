package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sahan-field/surveyqc/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "surveyqc",
	Short: "Survey data quality dashboard",
	Long:  "Pulls survey submissions from the collection API, scores data quality, and serves a self-refreshing dashboard with per-district progress and enumerator performance.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
