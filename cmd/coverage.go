package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/placewell/placewell/internal/model"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Analyze service coverage around a site",
	Long: `Report which census tracts fall within the service radius of a
candidate site, which tracts remain uncovered city-wide, and the people
reached. With --delta, the existing shelters form the baseline and the
report shows what the new site adds beyond them.

Examples:
  # Coverage of a single candidate site
  coverage --lat 37.3382 --lon -121.8863

  # What a new site adds beyond the existing shelter network
  coverage --lat 37.3385 --lon -121.8230 --delta

  # Wider service radius
  coverage --lat 37.3382 --lon -121.8863 --radius 1.5`,
	RunE: runCoverage,
}

func init() {
	f := coverageCmd.Flags()
	f.Float64("lat", 0, "site latitude")
	f.Float64("lon", 0, "site longitude")
	f.String("address", "", "site address (geocoded)")
	f.Float64("radius", 0, "service radius in miles (default from config)")
	f.Bool("delta", false, "report coverage added beyond existing shelters")
	f.String("format", "table", "output format: table, csv, or json")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "save the result to the evaluation history")

	rootCmd.AddCommand(coverageCmd)
}

func runCoverage(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	address, _ := cmd.Flags().GetString("address")
	radius, _ := cmd.Flags().GetFloat64("radius")
	delta, _ := cmd.Flags().GetBool("delta")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")

	site, err := env.resolveSite(ctx, lat, lon, address)
	if err != nil {
		return err
	}

	var result model.CoverageResult
	if delta {
		existing := make([]model.Coordinate, 0, len(env.Geo.Shelters()))
		for _, s := range env.Geo.Shelters() {
			existing = append(existing, s.Location)
		}
		result = env.Coverage.AggregateDelta(existing, site)
	} else {
		result = env.Coverage.CoverageFor(site, radius)
	}

	if err := outputResult(result, format, outputPath, writeCoverageTable, writeCoverageCSV); err != nil {
		return err
	}

	if save {
		if err := env.saveEvaluation(ctx, model.EvaluationCoverage, address, site, result); err != nil {
			return eris.Wrap(err, "coverage: save")
		}
		fmt.Println("Result saved to evaluation history.")
	}
	return nil
}

func writeCoverageTable(w *os.File, r model.CoverageResult) error {
	p := message.NewPrinter(language.English)

	for _, site := range r.Sites {
		p.Fprintf(w, "Site (%.4f, %.4f), radius %.1f mi:\n", site.Site.Latitude, site.Site.Longitude, site.RadiusMiles)
		p.Fprintf(w, "  Tracts covered: %d\n", len(site.CoveredTracts))
		p.Fprintf(w, "  Population:     %d\n", site.Population)
		p.Fprintf(w, "  Unhoused:       %d\n", site.Unhoused)
		for _, sd := range site.Shelters {
			p.Fprintf(w, "  Shelter %-24s %.2f mi\n", sd.Shelter.Name, sd.DistanceMiles)
		}
	}

	p.Fprintf(w, "\nCity-wide: %d tracts covered, %d uncovered\n", len(r.CoveredTracts), len(r.UncoveredTracts))
	p.Fprintf(w, "Population covered: %d\n", r.PopulationCovered)
	p.Fprintf(w, "Unhoused covered:   %d\n", r.UnhousedCovered)

	if len(r.NewlyCoveredTracts) > 0 || r.PopulationDelta > 0 || r.UnhousedDelta > 0 {
		p.Fprintf(w, "\nAdded by new site: %d tracts, %d people, %d unhoused\n",
			len(r.NewlyCoveredTracts), r.PopulationDelta, r.UnhousedDelta)
	}

	if len(r.UncoveredTracts) > 0 {
		p.Fprintln(w, "\nTop uncovered tracts by unhoused count:")
		limit := len(r.UncoveredTracts)
		if limit > 10 {
			limit = 10
		}
		for _, gap := range r.UncoveredTracts[:limit] {
			p.Fprintf(w, "  %-12s pop %10d  unhoused %6d\n", gap.TractID, gap.Population, gap.UnhousedCount)
		}
	}
	if len(r.Flags) > 0 {
		p.Fprintf(w, "\nFlags: %s\n", strings.Join(r.Flags, ", "))
	}
	return nil
}

func writeCoverageCSV(w *os.File, r model.CoverageResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"tract_id", "covered", "population", "unhoused_count"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "coverage: write CSV header")
	}

	for _, id := range r.CoveredTracts {
		if err := cw.Write([]string{id, "true", "", ""}); err != nil {
			return eris.Wrap(err, "coverage: write CSV row")
		}
	}
	for _, gap := range r.UncoveredTracts {
		row := []string{gap.TractID, "false", fmt.Sprintf("%d", gap.Population), fmt.Sprintf("%d", gap.UnhousedCount)}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "coverage: write CSV row")
		}
	}
	return nil
}
