package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/placewell/placewell/internal/model"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score candidate sites from a CSV file",
	Long: `Score every site listed in a CSV file. Each row needs either a
lat and lon column or an address column. Addresses that cannot be
geocoded are reported and skipped; they do not fail the batch.

Example input:
  id,lat,lon,address
  city-hall,37.3382,-121.8863,
  fairgrounds,,,"344 Tully Rd, San Jose, CA"`,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.String("input", "", "input CSV path (required)")
	f.String("output", "", "output CSV path (default: stdout)")
	f.Int("concurrency", 4, "max parallel site evaluations")
	_ = batchCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(batchCmd)
}

// batchRow is one candidate site from the input file.
type batchRow struct {
	ID      string
	Site    model.Coordinate
	Address string
	Result  model.ScoreResult
	Skipped string // non-empty reason when the row could not be evaluated
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	rows, err := readBatchInput(inputPath)
	if err != nil {
		return err
	}
	zap.L().Info("batch input loaded", zap.Int("sites", len(rows)))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	for i := range rows {
		row := &rows[i]
		eg.Go(func() error {
			if row.Address != "" {
				site, err := env.resolveSite(gCtx, 0, 0, row.Address)
				if err != nil {
					zap.L().Warn("batch: address skipped",
						zap.String("id", row.ID),
						zap.String("address", row.Address),
						zap.Error(err),
					)
					row.Skipped = "geocode failed"
					return nil
				}
				row.Site = site
			}
			row.Result = env.Scorer.Score(row.Site)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return eris.Wrap(err, "batch: evaluate")
	}

	if err := writeBatchOutput(rows, outputPath); err != nil {
		return err
	}

	var scored, skipped int
	for _, r := range rows {
		if r.Skipped != "" {
			skipped++
		} else {
			scored++
		}
	}
	fmt.Fprintf(os.Stderr, "Scored %d sites (%d skipped).\n", scored, skipped)
	return nil
}

func readBatchInput(path string) ([]batchRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read header of %s", path)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	get := func(rec []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	var rows []batchRow
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "batch: read %s line %d", path, line+1)
		}
		line++

		row := batchRow{
			ID:      get(rec, "id"),
			Address: get(rec, "address"),
		}
		if row.ID == "" {
			row.ID = fmt.Sprintf("%d", len(rows)+1)
		}

		latStr, lonStr := get(rec, "lat"), get(rec, "lon")
		if latStr != "" && lonStr != "" {
			lat, latErr := strconv.ParseFloat(latStr, 64)
			lon, lonErr := strconv.ParseFloat(lonStr, 64)
			if latErr != nil || lonErr != nil {
				return nil, eris.Errorf("batch: invalid coordinates on line %d of %s", line, path)
			}
			row.Site = model.Coordinate{Latitude: lat, Longitude: lon}
			row.Address = "" // coordinates win when both are present
		} else if row.Address == "" {
			return nil, eris.Errorf("batch: line %d of %s has neither coordinates nor address", line, path)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeBatchOutput(rows []batchRow, outputPath string) error {
	var w *os.File
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "batch: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	} else {
		w = os.Stdout
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"id", "lat", "lon", "tract_id", "access_score", "infrastructure_score", "community_score", "composite_score", "flags", "skipped"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "batch: write CSV header")
	}

	for _, row := range rows {
		rec := []string{
			row.ID,
			fmt.Sprintf("%.6f", row.Site.Latitude),
			fmt.Sprintf("%.6f", row.Site.Longitude),
			row.Result.TractID,
			fmt.Sprintf("%.4f", row.Result.AccessScore),
			fmt.Sprintf("%.4f", row.Result.InfrastructureScore),
			fmt.Sprintf("%.4f", row.Result.CommunityScore),
			fmt.Sprintf("%.4f", row.Result.CompositeScore),
			strings.Join(row.Result.Flags, ";"),
			row.Skipped,
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "batch: write CSV row")
		}
	}
	return nil
}
