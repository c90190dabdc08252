package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sahan-field/surveyqc/internal/orchestrator"
	"github.com/sahan-field/surveyqc/internal/source"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the latest submissions and rebuild the dashboard once",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := orchestrator.New(cfg, source.NewClient(cfg.Source))
		if err := orch.RunRefresh(cmd.Context()); err != nil {
			return err
		}

		st := orch.Status()
		zap.L().Info("refresh complete",
			zap.Int("records", st.RecordCount),
			zap.String("dashboard", cfg.Storage.DashboardFile),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
