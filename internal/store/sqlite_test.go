package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placewell/placewell/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSaveAndListEvaluations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	eval := &model.Evaluation{
		Kind:    model.EvaluationScore,
		Address: "200 E Santa Clara St, San Jose, CA",
		Site:    model.Coordinate{Latitude: 37.3382, Longitude: -121.8863},
		Result:  `{"composite_score":0.71}`,
	}
	require.NoError(t, s.SaveEvaluation(ctx, eval))
	assert.NotEmpty(t, eval.ID)
	assert.False(t, eval.CreatedAt.IsZero())

	got, err := s.ListEvaluations(ctx, model.EvaluationScore, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, eval.ID, got[0].ID)
	assert.Equal(t, eval.Address, got[0].Address)
	assert.InDelta(t, 37.3382, got[0].Site.Latitude, 1e-9)
	assert.Equal(t, eval.Result, got[0].Result)
}

func TestListEvaluations_FiltersByKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveEvaluation(ctx, &model.Evaluation{
		Kind: model.EvaluationScore, Result: "{}",
	}))
	require.NoError(t, s.SaveEvaluation(ctx, &model.Evaluation{
		Kind: model.EvaluationCoverage, Result: "{}",
	}))

	scores, err := s.ListEvaluations(ctx, model.EvaluationScore, 10)
	require.NoError(t, err)
	assert.Len(t, scores, 1)

	all, err := s.ListEvaluations(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSaveEvaluation_Nil(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.SaveEvaluation(context.Background(), nil))
}
