// Package store persists evaluation history. Persistence is an optional
// convenience: the engine never requires it, and every analysis is fully
// reproducible from its input coordinate.
package store

import (
	"context"

	"github.com/placewell/placewell/internal/model"
)

// Store records and lists past evaluations.
type Store interface {
	Migrate(ctx context.Context) error
	SaveEvaluation(ctx context.Context, eval *model.Evaluation) error
	ListEvaluations(ctx context.Context, kind model.EvaluationKind, limit int) ([]model.Evaluation, error)
	Close() error
}
