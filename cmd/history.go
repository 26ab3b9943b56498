package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/placewell/placewell/internal/model"
	"github.com/placewell/placewell/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past evaluations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Store.Path == "" {
			return eris.New("history store not configured, set PLACEWELL_STORE_PATH")
		}

		hist, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer hist.Close() //nolint:errcheck
		if err := hist.Migrate(ctx); err != nil {
			return err
		}

		kind, _ := cmd.Flags().GetString("kind")
		limit, _ := cmd.Flags().GetInt("limit")

		evals, err := hist.ListEvaluations(ctx, model.EvaluationKind(kind), limit)
		if err != nil {
			return err
		}
		if len(evals) == 0 {
			fmt.Println("No evaluations recorded.")
			return nil
		}

		for _, e := range evals {
			loc := fmt.Sprintf("(%.4f, %.4f)", e.Site.Latitude, e.Site.Longitude)
			if e.Address != "" {
				loc = e.Address
			}
			fmt.Printf("%s  %-11s %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Kind, loc)
		}
		return nil
	},
}

func init() {
	f := historyCmd.Flags()
	f.String("kind", "", "filter by kind: score, feasibility, or coverage")
	f.Int("limit", 20, "maximum number of rows")
	rootCmd.AddCommand(historyCmd)
}
