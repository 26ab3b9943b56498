package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/placewell/placewell/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "placewell",
	Short: "Site evaluation engine for emergency interim housing",
	Long:  "Scores candidate sites against shelter, census, and facility datasets; estimates construction feasibility; and analyzes service coverage gaps.",
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
