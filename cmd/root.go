package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/whovoted/rollmap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rollmap",
	Short: "Voter roll geocoding and mapping pipeline",
	Long:  "Geocodes uploaded voter rolls through a cached provider chain, cross-references party affiliation against earlier elections, and publishes GeoJSON map artifacts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
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
