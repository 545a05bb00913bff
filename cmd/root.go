package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medhirweb/salespipe/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "salespipe",
	Short: "Sales lead pipeline backend",
	Long:  "Manages Kanban lead stages, gated stage transitions (freeze, junk, lost, convert), activities, and append-only activity logs over a REST API.",
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
