package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terralens/landsat-dash/internal/model"
)

var (
	composeYear    int
	composeOut     string
	composePalette string
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Build one annual composite and render its thumbnail",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if composePalette != "" {
			cfg.Render.Palette = composePalette
		}

		env, err := initService(ctx, "engine")
		if err != nil {
			return err
		}
		defer env.Close()

		if _, _, err := yearSpan(composeYear, composeYear); err != nil {
			return err
		}

		stats, err := env.Service.Stats(ctx, composeYear)
		if err != nil {
			return eris.Wrapf(err, "compose %d", composeYear)
		}

		data, _, err := env.Service.Thumbnail(ctx, composeYear)
		if err != nil {
			return eris.Wrapf(err, "render thumbnail %d", composeYear)
		}

		if composeOut != "" {
			if err := os.WriteFile(composeOut, data, 0o644); err != nil {
				return eris.Wrapf(err, "write %s", composeOut)
			}
			zap.L().Info("thumbnail written",
				zap.String("path", composeOut),
				zap.Int("bytes", len(data)),
			)
		}

		view := model.CompositeView{
			Year:        composeYear,
			Status:      stats.Status,
			StatusLine:  model.StatusLine(composeYear, stats.Status, stats.ImageCount),
			ImageCount:  stats.ImageCount,
			ImageURL:    fmt.Sprintf("/api/composite/%d/thumbnail.png", composeYear),
			GeneratedAt: stats.ComputedAt,
		}

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}

func init() {
	composeCmd.Flags().IntVar(&composeYear, "year", 0, "composite year (required)")
	composeCmd.Flags().StringVar(&composeOut, "out", "", "write thumbnail PNG to this path")
	composeCmd.Flags().StringVar(&composePalette, "palette", "", "visualization palette (ndvi, temperature, truecolor)")
	_ = composeCmd.MarkFlagRequired("year")
	rootCmd.AddCommand(composeCmd)
}
