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

	"github.com/placewell/placewell/internal/model"
)

var feasibilityCmd = &cobra.Command{
	Use:   "feasibility",
	Short: "Estimate construction feasibility for a site",
	Long: `Estimate flood risk, soil stability, slope, and construction cost
for a candidate site. The terrain inputs are synthetic proxies derived
from the coordinate, intended for comparative screening rather than
engineering decisions.

Examples:
  feasibility --lat 37.3382 --lon -121.8863
  feasibility --address "200 E Santa Clara St, San Jose, CA" --format json`,
	RunE: runFeasibility,
}

func init() {
	f := feasibilityCmd.Flags()
	f.Float64("lat", 0, "site latitude")
	f.Float64("lon", 0, "site longitude")
	f.String("address", "", "site address (geocoded)")
	f.String("format", "table", "output format: table, csv, or json")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "save the result to the evaluation history")

	rootCmd.AddCommand(feasibilityCmd)
}

func runFeasibility(cmd *cobra.Command, _ []string) error {
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
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")

	site, err := env.resolveSite(ctx, lat, lon, address)
	if err != nil {
		return err
	}

	result := env.estimateFeasibility(site)

	if err := outputResult(result, format, outputPath, writeFeasibilityTable, writeFeasibilityCSV); err != nil {
		return err
	}

	if save {
		if err := env.saveEvaluation(ctx, model.EvaluationFeasibility, address, site, result); err != nil {
			return eris.Wrap(err, "feasibility: save")
		}
		fmt.Println("Result saved to evaluation history.")
	}
	return nil
}

// estimateFeasibility runs the estimator and flags sites outside the service
// area. The synthetic proxies extrapolate beyond the loaded datasets, so an
// out-of-bounds estimate is reported but marked low confidence.
func (e *appEnv) estimateFeasibility(site model.Coordinate) model.FeasibilityResult {
	result := e.Feasibility.Estimate(site)
	if !e.Geo.InBounds(site) {
		result.Flags = append(result.Flags, model.FlagOutOfBounds, model.FlagLowConfidence)
	}
	return result
}

func writeFeasibilityTable(w *os.File, r model.FeasibilityResult) error {
	fmt.Fprintf(w, "Flood risk:     %.4f\n", r.FloodRisk)
	fmt.Fprintf(w, "Soil stability: %.4f\n", r.SoilStability)
	fmt.Fprintf(w, "Slope:          %.2f%% grade\n", r.SlopeEstimate)
	fmt.Fprintf(w, "Cost estimate:  $%.2f/sqft\n", r.CostPerSqft)
	fmt.Fprintf(w, "Feasibility:    %.4f\n", r.FeasibilityScore)
	if len(r.Flags) > 0 {
		fmt.Fprintf(w, "\nFlags: %s\n", strings.Join(r.Flags, ", "))
	}
	return nil
}

func writeFeasibilityCSV(w *os.File, r model.FeasibilityResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"flood_risk", "soil_stability", "slope_estimate", "cost_per_sqft", "feasibility_score", "flags"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "feasibility: write CSV header")
	}
	row := []string{
		fmt.Sprintf("%.4f", r.FloodRisk),
		fmt.Sprintf("%.4f", r.SoilStability),
		fmt.Sprintf("%.2f", r.SlopeEstimate),
		fmt.Sprintf("%.2f", r.CostPerSqft),
		fmt.Sprintf("%.4f", r.FeasibilityScore),
		strings.Join(r.Flags, ";"),
	}
	if err := cw.Write(row); err != nil {
		return eris.Wrap(err, "feasibility: write CSV row")
	}
	return nil
}
