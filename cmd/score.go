package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/placewell/placewell/internal/model"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a candidate site for suitability",
	Long: `Compute the composite suitability score for a candidate site.

The score combines service access (40%), infrastructure readiness (30%),
and community need (30%), each normalized to [0,1]. The site is given as
coordinates or as a free-form address resolved through the geocoder.

Examples:
  # Score by coordinate
  score --lat 37.3382 --lon -121.8863

  # Score by address and persist the result
  score --address "200 E Santa Clara St, San Jose, CA" --save

  # Machine-readable output
  score --lat 37.3382 --lon -121.8863 --format json`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.Float64("lat", 0, "site latitude")
	f.Float64("lon", 0, "site longitude")
	f.String("address", "", "site address (geocoded)")
	f.String("format", "table", "output format: table, csv, or json")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "save the result to the evaluation history")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
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

	result := env.Scorer.Score(site)

	if err := outputResult(result, format, outputPath, writeScoreTable, writeScoreCSV); err != nil {
		return err
	}

	if save {
		if err := env.saveEvaluation(ctx, model.EvaluationScore, address, site, result); err != nil {
			return eris.Wrap(err, "score: save")
		}
		fmt.Println("Result saved to evaluation history.")
	}
	return nil
}

// outputResult writes a result in the requested format, to a file when
// outputPath is set.
func outputResult[T any](result T, format, outputPath string, table, csvFn func(*os.File, T) error) error {
	var w *os.File
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	} else {
		w = os.Stdout
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "csv":
		return csvFn(w, result)
	case "table":
		return table(w, result)
	default:
		return eris.Errorf("unsupported format %q", format)
	}
}

func writeScoreTable(w *os.File, r model.ScoreResult) error {
	fmt.Fprintf(w, "Tract:          %s\n", r.TractID)
	fmt.Fprintf(w, "Access:         %.4f\n", r.AccessScore)
	fmt.Fprintf(w, "Infrastructure: %.4f\n", r.InfrastructureScore)
	fmt.Fprintf(w, "Community:      %.4f\n", r.CommunityScore)
	fmt.Fprintf(w, "Composite:      %.4f\n", r.CompositeScore)

	if len(r.Components) > 0 {
		fmt.Fprintln(w, "\nComponents:")
		names := make([]string, 0, len(r.Components))
		for name := range r.Components {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-25s %.4f\n", name, r.Components[name])
		}
	}
	if len(r.Flags) > 0 {
		fmt.Fprintf(w, "\nFlags: %s\n", strings.Join(r.Flags, ", "))
	}
	return nil
}

func writeScoreCSV(w *os.File, r model.ScoreResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"tract_id", "access_score", "infrastructure_score", "community_score", "composite_score", "flags"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}
	row := []string{
		r.TractID,
		fmt.Sprintf("%.4f", r.AccessScore),
		fmt.Sprintf("%.4f", r.InfrastructureScore),
		fmt.Sprintf("%.4f", r.CommunityScore),
		fmt.Sprintf("%.4f", r.CompositeScore),
		strings.Join(r.Flags, ";"),
	}
	if err := cw.Write(row); err != nil {
		return eris.Wrap(err, "score: write CSV row")
	}
	return nil
}
