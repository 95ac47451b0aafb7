package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/registralia/borme-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "borme",
	Short: "Spanish mercantile gazette ingestion pipeline",
	Long:  "Fetches BORME section-A documents, extracts corporate filings, resolves them into cumulative company records and serves them over a small API.",
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
