package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terralens/landsat-dash/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "landsat-dash",
	Short: "Annual Landsat composite dashboard",
	Long:  "Builds cloud-masked annual Landsat surface-reflectance composites on a remote compute engine and serves them to a browser: map tiles, thumbnails, NDVI statistics, trend charts.",
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
