package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terralens/landsat-dash/internal/model"
)

var warmConcurrency int

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Precompute stats and thumbnails for every configured year",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx, "engine")
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := warmConcurrency
		if concurrency == 0 {
			concurrency = cfg.Warm.Concurrency
		}

		years := env.Service.Years()
		bar := progressbar.Default(int64(len(years)), "Warming composites")

		result, err := env.Service.Warm(ctx, years, concurrency, func(model.RegionStats) {
			_ = bar.Add(1)
		})
		_ = bar.Finish()
		if err != nil {
			return eris.Wrap(err, "warm")
		}

		zap.L().Info("warm finished",
			zap.Int("ready", result.Ready),
			zap.Int("no_data", result.NoData),
			zap.Int("failed", result.Failed),
			zap.Int64("persisted", result.Persisted),
		)

		if result.Failed > 0 {
			return eris.Errorf("warm: %d of %d years failed", result.Failed, len(years))
		}
		return nil
	},
}

func init() {
	warmCmd.Flags().IntVar(&warmConcurrency, "concurrency", 0, "parallel years (default from config)")
	rootCmd.AddCommand(warmCmd)
}
