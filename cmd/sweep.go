package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medhirweb/salespipe/internal/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one overdue-activity sweep and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sweeper := sweep.New(st, initNotifier(), cfg.Sweep.MaxConcurrency)
		notified, err := sweeper.Sweep(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("sweep complete", zap.Int("leads_notified", notified))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
