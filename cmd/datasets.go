package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Inspect and validate the reference datasets",
}

var datasetsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset counts, bounds, and the point-in-time summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p := message.NewPrinter(language.English)
		geo := env.Geo
		bounds := geo.Bounds()

		var population, unhoused int
		withBoundary := 0
		for _, t := range geo.Tracts() {
			population += t.Population
			unhoused += t.UnhousedCount
			if t.Boundary != nil {
				withBoundary++
			}
		}

		p.Printf("Shelters:   %d\n", len(geo.Shelters()))
		p.Printf("Tracts:     %d (%d with boundary polygons)\n", len(geo.Tracts()), withBoundary)
		p.Printf("Population: %d\n", population)
		p.Printf("Unhoused:   %d\n", unhoused)
		p.Printf("Bounds:     lat [%.4f, %.4f], lon [%.4f, %.4f]\n",
			bounds.MinLat, bounds.MaxLat, bounds.MinLng, bounds.MaxLng)

		summary := geo.Summary()
		p.Printf("\nPoint-in-time count:\n")
		p.Printf("  Sheltered:   %d\n", summary.Sheltered)
		p.Printf("  Unsheltered: %d\n", summary.Unsheltered)
		p.Printf("  Total:       %d\n", summary.Total)
		return nil
	},
}

var datasetsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load every dataset and report the first malformed record",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		fmt.Println("All datasets loaded cleanly.")
		return nil
	},
}

var datasetsLoadBoundariesCmd = &cobra.Command{
	Use:   "load-boundaries",
	Short: "Attach tract boundary polygons from a TIGER/Line shapefile",
	Long: `Match the polygons in a census tract shapefile against the loaded
tracts by GEOID and report how many attach. Boundaries sharpen tract
resolution from nearest-point to polygon containment; the engine loads
them automatically when data.boundaries_path is configured.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path, _ := cmd.Flags().GetString("file")
		if path != "" {
			cfg.Data.BoundariesPath = path
		}
		if cfg.Data.BoundariesPath == "" {
			return eris.New("datasets: provide --file or set data.boundaries_path")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		matched := 0
		for _, t := range env.Geo.Tracts() {
			if t.Boundary != nil {
				matched++
			}
		}
		fmt.Printf("Attached boundaries to %d of %d tracts.\n", matched, len(env.Geo.Tracts()))
		return nil
	},
}

func init() {
	datasetsLoadBoundariesCmd.Flags().String("file", "", "shapefile path (overrides config)")

	datasetsCmd.AddCommand(datasetsStatusCmd)
	datasetsCmd.AddCommand(datasetsValidateCmd)
	datasetsCmd.AddCommand(datasetsLoadBoundariesCmd)
	rootCmd.AddCommand(datasetsCmd)
}
