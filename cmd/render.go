package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sahan-field/surveyqc/internal/orchestrator"
	"github.com/sahan-field/surveyqc/internal/source"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Rebuild the dashboard from the stored snapshot without fetching",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := orchestrator.New(cfg, source.NewClient(cfg.Source))
		if err := orch.Rebuild(cmd.Context()); err != nil {
			return err
		}

		st := orch.Status()
		zap.L().Info("dashboard rendered",
			zap.Int("records", st.RecordCount),
			zap.String("dashboard", cfg.Storage.DashboardFile),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
