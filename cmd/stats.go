package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/terralens/landsat-dash/internal/model"
	"github.com/terralens/landsat-dash/internal/render"
)

var (
	statsFrom int
	statsTo   int
	statsJSON bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Compute yearly region statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx, "engine")
		if err != nil {
			return err
		}
		defer env.Close()

		from, to, err := yearSpan(statsFrom, statsTo)
		if err != nil {
			return err
		}

		rows := make([]model.RegionStats, 0, to-from+1)
		for year := from; year <= to; year++ {
			st, err := env.Service.Stats(ctx, year)
			if err != nil {
				return eris.Wrapf(err, "stats %d", year)
			}
			rows = append(rows, st)
		}

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		fmt.Print(render.StatsTable(rows))
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsFrom, "from", 0, "first year (default from config)")
	statsCmd.Flags().IntVar(&statsTo, "to", 0, "last year (default from config)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print rows as JSON instead of a table")
	rootCmd.AddCommand(statsCmd)
}
